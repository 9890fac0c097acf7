// Package pagination parses page/limit query parameters and shapes paged
// list responses.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// New normalizes page and limit: page below 1 becomes 1, a limit outside
// (0, MaxLimit] becomes DefaultLimit.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// FromRequest reads "page" and "limit" ("per_page" is accepted as an alias).
// Malformed values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	limit := atoi(q.Get("limit"))
	if limit == 0 {
		limit = atoi(q.Get("per_page"))
	}
	return New(atoi(q.Get("page")), limit)
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// Result is one page of T plus the counters a client needs to navigate.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewResult[T any](data []T, totalCount int, p Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (totalCount + p.Limit - 1) / p.Limit
	}
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.Limit,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
