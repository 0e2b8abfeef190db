// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryAll is the filter sentinel that disables category filtering.
const CategoryAll = "all"

// Category groups agents in the catalog. Slug is the stable filter key;
// Color is a presentation hint passed through untouched.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryDraft holds the fields an admin sets when adding a category.
type CategoryDraft struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CategoryRef is the category summary embedded in an agent row.
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
	Color string    `json:"color"`
}

// CreatorRef is the creator summary embedded in an agent row.
type CreatorRef struct {
	ID        uuid.UUID `json:"id"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Username  *string   `json:"username"`
}

// DisplayName returns the creator's username, else their full name, else
// "Anonymous".
func (c *CreatorRef) DisplayName() string {
	if c.Username != nil && *c.Username != "" {
		return *c.Username
	}
	var parts []string
	for _, p := range []*string{c.FirstName, c.LastName} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return "Anonymous"
	}
	return strings.Join(parts, " ")
}
