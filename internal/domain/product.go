package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry. Prices are in cents (BRL).
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug"`
	Price             int64     `json:"price"`
	OriginalPrice     *int64    `json:"original_price,omitempty"`
	ImageURL          string    `json:"image_url,omitempty"`
	Category          string    `json:"category"`
	Subcategory       string    `json:"subcategory,omitempty"`
	Tags              []string  `json:"tags"`
	DiscountPercent   *int      `json:"discount_percent,omitempty"`
	InStock           bool      `json:"in_stock"`
	Featured          bool      `json:"featured"`
	Description       string    `json:"description,omitempty"`
	Dosage            string    `json:"dosage,omitempty"`
	Composition       string    `json:"composition,omitempty"`
	Usage             string    `json:"usage,omitempty"`
	SideEffects       string    `json:"side_effects,omitempty"`
	Contraindications string    `json:"contraindications,omitempty"`
	Manufacturer      string    `json:"manufacturer,omitempty"`
	Brand             string    `json:"brand,omitempty"`
	Rating            float64   `json:"rating"`
	ReviewCount       int       `json:"review_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProductSort is the ordering applied to catalog listings.
type ProductSort string

const (
	SortByName      ProductSort = "name"
	SortByPriceAsc  ProductSort = "price-asc"
	SortByPriceDesc ProductSort = "price-desc"
	SortByRating    ProductSort = "rating"
	SortByNewest    ProductSort = "newest"
)

// ParseProductSort maps a query value onto a sort, defaulting to name.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(strings.ToLower(strings.TrimSpace(s))) {
	case SortByPriceAsc:
		return SortByPriceAsc
	case SortByPriceDesc:
		return SortByPriceDesc
	case SortByRating:
		return SortByRating
	case SortByNewest:
		return SortByNewest
	default:
		return SortByName
	}
}

// ProductFilter narrows a catalog listing. Zero values mean "no constraint".
// Search matches name, description or any tag, case-insensitively.
type ProductFilter struct {
	Category     string
	Search       string
	MinPrice     *int64
	MaxPrice     *int64
	FeaturedOnly bool
	Sort         ProductSort
	Offset       int
	Limit        int
}
