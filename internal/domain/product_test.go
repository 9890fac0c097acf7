package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProductSort(t *testing.T) {
	assert.Equal(t, SortByPriceAsc, ParseProductSort("price-asc"))
	assert.Equal(t, SortByPriceDesc, ParseProductSort(" PRICE-DESC "))
	assert.Equal(t, SortByRating, ParseProductSort("rating"))
	assert.Equal(t, SortByNewest, ParseProductSort("newest"))
	assert.Equal(t, SortByName, ParseProductSort(""))
	assert.Equal(t, SortByName, ParseProductSort("bogus"))
}
