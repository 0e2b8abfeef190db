// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"agentmarket/internal/models"
	"agentmarket/internal/store/query"
)

// agentFields are the agents table columns in scan order.
var agentFields = []string{
	"id", "name", "description", "tags", "price", "category_id", "creator_id",
	"total_sales", "rating", "total_revenue", "status", "created_at", "updated_at",
}

// refFields are the joined category and creator summaries.
var refFields = []string{
	"c.id", "c.name", "c.slug", "c.color",
	"u.id", "u.metadata ->> 'first_name'", "u.metadata ->> 'last_name'", "u.metadata ->> 'username'",
}

func prefixed(prefix string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return out
}

// agentBase selects agents joined with their category and creator.
var agentBase = query.From("agents a").
	Select(prefixed("a.", agentFields)...).
	Select(refFields...).
	Join("JOIN categories c ON c.id = a.category_id").
	Join("JOIN users u ON u.id = a.creator_id")

// sortColumns maps each sort key to its single ordering column.
var sortColumns = map[models.SortKey]struct {
	column    string
	direction query.Direction
}{
	models.SortPopular:   {"a.total_sales", query.Desc},
	models.SortRating:    {"a.rating", query.Desc},
	models.SortPriceLow:  {"a.price", query.Asc},
	models.SortPriceHigh: {"a.price", query.Desc},
	models.SortNewest:    {"a.created_at", query.Desc},
}

// AgentFilter narrows an agent listing. Zero values disable a filter.
type AgentFilter struct {
	Status       models.AgentStatus
	CategorySlug string
	Search       string
	CreatorID    uuid.UUID
	SortBy       models.SortKey
	Limit        int
	Offset       int
}

// AgentStore manages agent listings in the database.
type AgentStore struct {
	db *sql.DB
}

// NewAgentStore returns a new AgentStore.
func NewAgentStore(db *sql.DB) *AgentStore {
	return &AgentStore{db: db}
}

// filtered applies the WHERE clauses of f to b. The status filter, when
// set, is always the first predicate.
func filtered(b *query.Builder, f AgentFilter) *query.Builder {
	if f.Status != "" {
		b = b.Where(query.Eq("a.status", string(f.Status)))
	}
	if f.CategorySlug != "" {
		b = b.Where(query.Eq("c.slug", f.CategorySlug))
	}
	if f.CreatorID != uuid.Nil {
		b = b.Where(query.Eq("a.creator_id", f.CreatorID))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		b = b.Where(query.Or(
			query.Contains("a.name", term),
			query.Contains("a.description", term),
			query.HasElement("a.tags", term),
		))
	}
	return b
}

// listStatement builds the page query for f.
func listStatement(f AgentFilter) query.Statement {
	b := filtered(agentBase, f)

	sort, ok := sortColumns[models.ParseSortKey(string(f.SortBy))]
	if !ok {
		sort = sortColumns[models.SortPopular]
	}
	b = b.OrderBy(sort.column, sort.direction).OrderBy("a.id", query.Asc)

	if f.Limit > 0 {
		b = b.Limit(int64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(int64(f.Offset))
	}
	return b.Build()
}

// countStatement builds the total-count query for f, using the same
// filters as the page query.
func countStatement(f AgentFilter) query.Statement {
	return filtered(agentBase, f).Count().Build()
}

// List returns the agents matching f in the requested order. The result is
// never nil.
func (s *AgentStore) List(ctx context.Context, f AgentFilter) ([]models.Agent, error) {
	stmt := listStatement(f)
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	agents := []models.Agent{}
	for rows.Next() {
		a, err := scanAgentWithRefs(rows, m)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// Count returns how many agents match f, ignoring Limit and Offset.
func (s *AgentStore) Count(ctx context.Context, f AgentFilter) (int, error) {
	stmt := countStatement(f)
	var n int
	if err := s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return n, nil
}

// FindByID retrieves an agent with its references. Returns nil if not found.
func (s *AgentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	stmt := agentBase.Where(query.Eq("a.id", id)).Build()
	a, err := scanAgentWithRefs(s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...), pgtype.NewMap())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find agent by id: %w", err)
	}
	return a, nil
}

// Create inserts a new agent and returns the stored row, including the
// generated id and timestamps. All columns are written as given; callers
// decide the status and metrics.
func (s *AgentStore) Create(ctx context.Context, a *models.Agent) (*models.Agent, error) {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agents (name, description, tags, price, category_id, creator_id,
		                    total_sales, rating, total_revenue, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+strings.Join(agentFields, ", "),
		a.Name, a.Description, tags, a.Price, a.CategoryID, a.CreatorID,
		a.TotalSales, a.Rating, a.TotalRevenue, string(a.Status),
	)
	created, err := scanAgent(row, pgtype.NewMap())
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return created, nil
}

// agentTargets returns scan destinations for agentFields.
func agentTargets(a *models.Agent, m *pgtype.Map) []any {
	return []any{
		&a.ID, &a.Name, &a.Description, m.SQLScanner(&a.Tags), &a.Price,
		&a.CategoryID, &a.CreatorID, &a.TotalSales, &a.Rating, &a.TotalRevenue,
		&a.Status, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAgent(scanner interface{ Scan(...any) error }, m *pgtype.Map) (*models.Agent, error) {
	var a models.Agent
	if err := scanner.Scan(agentTargets(&a, m)...); err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func scanAgentWithRefs(scanner interface{ Scan(...any) error }, m *pgtype.Map) (*models.Agent, error) {
	var (
		a   models.Agent
		cat models.CategoryRef
		cr  models.CreatorRef
	)
	targets := append(agentTargets(&a, m),
		&cat.ID, &cat.Name, &cat.Slug, &cat.Color,
		&cr.ID, &cr.FirstName, &cr.LastName, &cr.Username,
	)
	if err := scanner.Scan(targets...); err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	a.Category = &cat
	a.Creator = &cr
	return &a, nil
}
