// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want SortKey
	}{
		{"popular", SortPopular},
		{"rating", SortRating},
		{"price-low", SortPriceLow},
		{"price-high", SortPriceHigh},
		{"newest", SortNewest},
		{"", SortPopular},
		{"oldest", SortPopular},
		{"NEWEST", SortPopular},
	}
	for _, tt := range tests {
		if got := ParseSortKey(tt.in); got != tt.want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseListingQuery(t *testing.T) {
	tests := []struct {
		name                       string
		category, search, sortBy   string
		page, limit                string
		wantPage, wantLimit        int
		wantCategory, wantSearch   string
		wantSort                   SortKey
		wantOffset                 int
	}{
		{
			name: "defaults", wantPage: 1, wantLimit: 12, wantSort: SortPopular,
		},
		{
			name: "explicit values", category: "productivity", search: " chat ", sortBy: "newest",
			page: "3", limit: "5",
			wantPage: 3, wantLimit: 5, wantCategory: "productivity", wantSearch: "chat",
			wantSort: SortNewest, wantOffset: 10,
		},
		{
			name: "all sentinel clears category", category: "all",
			wantPage: 1, wantLimit: 12, wantSort: SortPopular,
		},
		{
			name: "garbage numbers fall back", page: "abc", limit: "-4",
			wantPage: 1, wantLimit: 12, wantSort: SortPopular,
		},
		{
			name: "limit is capped", limit: "5000",
			wantPage: 1, wantLimit: MaxLimit, wantSort: SortPopular,
		},
		{
			name: "huge page keeps a positive offset", page: strconv.Itoa(math.MaxInt), limit: "12",
			wantPage: math.MaxInt / 12, wantLimit: 12, wantSort: SortPopular,
			wantOffset: (math.MaxInt/12 - 1) * 12,
		},
		{
			name: "page past int range falls back", page: "99999999999999999999999",
			wantPage: 1, wantLimit: 12, wantSort: SortPopular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseListingQuery(tt.category, tt.search, tt.sortBy, tt.page, tt.limit)
			if q.Page != tt.wantPage || q.Limit != tt.wantLimit {
				t.Errorf("page/limit = %d/%d, want %d/%d", q.Page, q.Limit, tt.wantPage, tt.wantLimit)
			}
			if q.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", q.Category, tt.wantCategory)
			}
			if q.Search != tt.wantSearch {
				t.Errorf("search = %q, want %q", q.Search, tt.wantSearch)
			}
			if q.SortBy != tt.wantSort {
				t.Errorf("sort = %q, want %q", q.SortBy, tt.wantSort)
			}
			if q.Offset() != tt.wantOffset {
				t.Errorf("offset = %d, want %d", q.Offset(), tt.wantOffset)
			}
		})
	}
}

func TestNormalizeBoundsOffset(t *testing.T) {
	for _, limit := range []int{1, 7, 12, MaxLimit} {
		q := ListingQuery{Page: math.MaxInt, Limit: limit}.Normalize()
		if q.Offset() <= 0 {
			t.Errorf("limit %d: offset = %d, want positive", limit, q.Offset())
		}
		if q.Offset() > math.MaxInt-q.Limit {
			t.Errorf("limit %d: offset %d leaves no room for the page", limit, q.Offset())
		}
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, limit, total, wantPages int
	}{
		{1, 2, 3, 2},
		{1, 12, 0, 0},
		{1, 12, 12, 1},
		{2, 12, 13, 2},
		{1, 0, 5, 0},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.limit, tt.total)
		if p.TotalPages != tt.wantPages {
			t.Errorf("NewPagination(%d,%d,%d).TotalPages = %d, want %d",
				tt.page, tt.limit, tt.total, p.TotalPages, tt.wantPages)
		}
	}
}

func TestAgentPriceMarshalsAsNumber(t *testing.T) {
	a := Agent{Name: "ChatBot Nigeria", Price: decimal.RequireFromString("1500.50")}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"price":1500.5`) {
		t.Errorf("price should be a JSON number, got %s", b)
	}
}
