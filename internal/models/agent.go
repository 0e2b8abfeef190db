// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices are served as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AgentStatus is the review state of a listing.
type AgentStatus string

const (
	AgentStatusPending  AgentStatus = "pending"
	AgentStatusApproved AgentStatus = "approved"
	AgentStatusRejected AgentStatus = "rejected"
)

// Agent is a catalog listing for an AI agent, joined with its category
// and creator summaries.
type Agent struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Tags         []string        `json:"tags"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   uuid.UUID       `json:"category_id"`
	CreatorID    uuid.UUID       `json:"creator_id"`
	TotalSales   int             `json:"total_sales"`
	Rating       float64         `json:"rating"`
	TotalRevenue int64           `json:"total_revenue"`
	Status       AgentStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Joined references, populated by list queries.
	Category *CategoryRef `json:"category,omitempty"`
	Creator  *CreatorRef  `json:"creator,omitempty"`
}

// IsApproved returns true if the agent is visible in the public catalog.
func (a *Agent) IsApproved() bool {
	return a.Status == AgentStatusApproved
}

// AgentDraft holds the fields a creator may set when submitting a listing.
// Status, sales, revenue, rating and ownership are assigned server-side.
type AgentDraft struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uuid.UUID       `json:"category_id"`
}
