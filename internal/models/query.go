// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"math"
	"strconv"
	"strings"
)

// SortKey selects the single active ordering of a catalog query.
type SortKey string

const (
	SortPopular   SortKey = "popular"
	SortRating    SortKey = "rating"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortNewest    SortKey = "newest"
)

// ParseSortKey resolves a raw sortBy value. Unknown keys fall back to
// SortPopular.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortPopular, SortRating, SortPriceLow, SortPriceHigh, SortNewest:
		return SortKey(s)
	default:
		return SortPopular
	}
}

// Pagination defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// ListingQuery describes one page of the public catalog.
type ListingQuery struct {
	Category string
	Search   string
	SortBy   SortKey
	Page     int
	Limit    int
}

// Normalize applies defaults and bounds: page >= 1, 1 <= limit <= MaxLimit,
// a known sort key, and a trimmed search term. Page is capped so Offset
// cannot overflow; a capped page still lies past any real result set.
func (q ListingQuery) Normalize() ListingQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	q.SortBy = ParseSortKey(string(q.SortBy))
	q.Search = strings.TrimSpace(q.Search)
	if q.Category == CategoryAll {
		q.Category = ""
	}
	return q
}

// Offset returns the number of rows skipped before this page.
func (q ListingQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseListingQuery builds a normalized query from URL-style parameters.
// Non-numeric page or limit values fall back to their defaults.
func ParseListingQuery(category, search, sortBy, page, limit string) ListingQuery {
	q := ListingQuery{
		Category: category,
		Search:   search,
		SortBy:   SortKey(sortBy),
		Page:     atoiOr(page, DefaultPage),
		Limit:    atoiOr(limit, DefaultLimit),
	}
	return q.Normalize()
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// Pagination is the metadata returned alongside a page of agents.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes totalPages = ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// AgentPage is one page of catalog results.
type AgentPage struct {
	Agents     []Agent    `json:"agents"`
	Pagination Pagination `json:"pagination"`
}
