// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog implements the public agent catalog: paged, filtered
// listing of approved agents and submission of new listings for review.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agentmarket/internal/events"
	"agentmarket/internal/models"
	"agentmarket/internal/store"
)

// maxPrice is the exclusive upper bound of a NUMERIC(12,2) price.
var maxPrice = decimal.New(1, 10)

// Draft limits.
const (
	MaxNameLength        = 120
	MaxDescriptionLength = 5000
	MaxTags              = 20
	MaxTagLength         = 40

	MaxCategoryNameLength = 60
)

// DefaultCategoryColor is used when a new category names no color.
const DefaultCategoryColor = "#6b7280"

// AgentRepository is the agent storage the catalog reads and writes.
type AgentRepository interface {
	List(ctx context.Context, f store.AgentFilter) ([]models.Agent, error)
	Count(ctx context.Context, f store.AgentFilter) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	Create(ctx context.Context, a *models.Agent) (*models.Agent, error)
}

// CategoryRepository is the category storage.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryCache is an optional read-through cache for the category list.
type CategoryCache interface {
	Get(ctx context.Context) ([]models.Category, bool)
	Set(ctx context.Context, cats []models.Category)
	Invalidate(ctx context.Context)
}

// Service answers catalog queries and accepts new listings.
type Service struct {
	agents     AgentRepository
	categories CategoryRepository
	cache      CategoryCache
	events     events.Publisher
	tracer     trace.Tracer
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCategoryCache enables caching of the category list.
func WithCategoryCache(c CategoryCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher sets where submission events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a catalog service.
func NewService(agents AgentRepository, categories CategoryRepository, opts ...Option) *Service {
	s := &Service{
		agents:     agents,
		categories: categories,
		events:     events.Noop{},
		tracer:     otel.Tracer("agentmarket/catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListApproved returns one page of approved agents. Only approved agents
// are ever returned; the total counts every approved agent matching the
// same category and search filters. A category slug that names no
// category yields an empty page.
func (s *Service) ListApproved(ctx context.Context, q models.ListingQuery) (*models.AgentPage, error) {
	q = q.Normalize()

	ctx, span := s.tracer.Start(ctx, "Catalog.ListApproved", trace.WithAttributes(
		attribute.String("catalog.category", q.Category),
		attribute.String("catalog.search", q.Search),
		attribute.String("catalog.sort", string(q.SortBy)),
		attribute.Int("catalog.page", q.Page),
		attribute.Int("catalog.limit", q.Limit),
	))
	defer span.End()

	if q.Category != "" {
		cat, err := s.categories.FindBySlug(ctx, q.Category)
		if err != nil {
			return nil, s.fail(span, storeErr("find category", err))
		}
		if cat == nil {
			span.SetAttributes(attribute.Bool("catalog.unknown_category", true))
			return &models.AgentPage{
				Agents:     []models.Agent{},
				Pagination: models.NewPagination(q.Page, q.Limit, 0),
			}, nil
		}
	}

	f := store.AgentFilter{
		Status:       models.AgentStatusApproved,
		CategorySlug: q.Category,
		Search:       q.Search,
		SortBy:       q.SortBy,
		Limit:        q.Limit,
		Offset:       q.Offset(),
	}

	agents, err := s.agents.List(ctx, f)
	if err != nil {
		return nil, s.fail(span, storeErr("list agents", err))
	}
	total, err := s.agents.Count(ctx, f)
	if err != nil {
		return nil, s.fail(span, storeErr("count agents", err))
	}
	if agents == nil {
		agents = []models.Agent{}
	}

	span.SetAttributes(attribute.Int("catalog.total", total), attribute.Int("catalog.returned", len(agents)))
	return &models.AgentPage{
		Agents:     agents,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// GetApproved returns a single approved agent. Pending and rejected agents
// are reported as ErrNotFound.
func (s *Service) GetApproved(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	ctx, span := s.tracer.Start(ctx, "Catalog.GetApproved", trace.WithAttributes(
		attribute.String("agent.id", id.String()),
	))
	defer span.End()

	a, err := s.agents.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, storeErr("find agent", err))
	}
	if a == nil || !a.IsApproved() {
		return nil, ErrNotFound
	}
	return a, nil
}

// ListByCreator returns a page of the creator's own agents in any status,
// newest first unless q selects another order.
func (s *Service) ListByCreator(ctx context.Context, creatorID uuid.UUID, q models.ListingQuery) (*models.AgentPage, error) {
	if creatorID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	if q.SortBy == "" {
		q.SortBy = models.SortNewest
	}
	q = q.Normalize()

	ctx, span := s.tracer.Start(ctx, "Catalog.ListByCreator", trace.WithAttributes(
		attribute.String("creator.id", creatorID.String()),
	))
	defer span.End()

	f := store.AgentFilter{
		CreatorID: creatorID,
		Search:    q.Search,
		SortBy:    q.SortBy,
		Limit:     q.Limit,
		Offset:    q.Offset(),
	}
	agents, err := s.agents.List(ctx, f)
	if err != nil {
		return nil, s.fail(span, storeErr("list creator agents", err))
	}
	total, err := s.agents.Count(ctx, f)
	if err != nil {
		return nil, s.fail(span, storeErr("count creator agents", err))
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	return &models.AgentPage{Agents: agents, Pagination: models.NewPagination(q.Page, q.Limit, total)}, nil
}

// Categories returns every category ordered by name.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	if s.cache != nil {
		if cats, ok := s.cache.Get(ctx); ok {
			return cats, nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "Catalog.Categories")
	defer span.End()

	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, s.fail(span, storeErr("list categories", err))
	}
	if cats == nil {
		cats = []models.Category{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, cats)
	}
	return cats, nil
}

// CreateCategory adds a category. An empty slug is derived from the name.
func (s *Service) CreateCategory(ctx context.Context, draft models.CategoryDraft) (*models.Category, error) {
	c, err := normalizeCategory(draft)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "Catalog.CreateCategory", trace.WithAttributes(
		attribute.String("catalog.category", c.Slug),
	))
	defer span.End()

	created, err := s.categories.Create(ctx, c)
	switch {
	case errors.Is(err, store.ErrInvalidSlug):
		return nil, invalidCategory("slug must be lower-case letters, digits and single hyphens")
	case errors.Is(err, store.ErrDuplicateSlug):
		return nil, ErrCategoryExists
	case err != nil:
		return nil, s.fail(span, storeErr("create category", err))
	}
	s.invalidateCategories(ctx)
	slog.Info("category created", "category_id", created.ID, "slug", created.Slug)
	return created, nil
}

// DeleteCategory removes a category that no agent belongs to.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "Catalog.DeleteCategory", trace.WithAttributes(
		attribute.String("catalog.category_id", id.String()),
	))
	defer span.End()

	err := s.categories.Delete(ctx, id)
	switch {
	case errors.Is(err, store.ErrCategoryNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, store.ErrCategoryInUse):
		return ErrCategoryInUse
	case err != nil:
		return s.fail(span, storeErr("delete category", err))
	}
	s.invalidateCategories(ctx)
	slog.Info("category deleted", "category_id", id)
	return nil
}

func (s *Service) invalidateCategories(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func normalizeCategory(d models.CategoryDraft) (*models.Category, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, invalidCategory("name is required")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return nil, invalidCategory("name must be at most %d characters", MaxCategoryNameLength)
	}
	color := strings.TrimSpace(d.Color)
	if color == "" {
		color = DefaultCategoryColor
	}
	return &models.Category{
		Name:        name,
		Slug:        strings.TrimSpace(d.Slug),
		Description: strings.TrimSpace(d.Description),
		Color:       color,
	}, nil
}

// SubmitListing stores a new agent for review. The creator must be
// authenticated; the listing always starts pending with zero sales,
// revenue and rating, whatever the caller asked for.
func (s *Service) SubmitListing(ctx context.Context, draft models.AgentDraft, creatorID uuid.UUID) (*models.Agent, error) {
	if creatorID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	ctx, span := s.tracer.Start(ctx, "Catalog.SubmitListing", trace.WithAttributes(
		attribute.String("creator.id", creatorID.String()),
		attribute.String("agent.name", draft.Name),
	))
	defer span.End()

	draft, err := normalizeDraft(draft)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cat, err := s.categories.FindByID(ctx, draft.CategoryID)
	if err != nil {
		return nil, s.fail(span, storeErr("find category", err))
	}
	if cat == nil {
		err := invalid("unknown category %s", draft.CategoryID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	created, err := s.agents.Create(ctx, &models.Agent{
		Name:         draft.Name,
		Description:  draft.Description,
		Tags:         draft.Tags,
		Price:        draft.Price,
		CategoryID:   draft.CategoryID,
		CreatorID:    creatorID,
		TotalSales:   0,
		Rating:       0,
		TotalRevenue: 0,
		Status:       models.AgentStatusPending,
	})
	if err != nil {
		return nil, s.fail(span, storeErr("create agent", err))
	}
	span.SetAttributes(attribute.String("agent.id", created.ID.String()))

	_, pubSpan := s.tracer.Start(ctx, "NATS.Publish."+events.SubjectAgentSubmitted)
	if err := s.events.Publish(ctx, events.SubjectAgentSubmitted, events.NewAgentSubmitted(created)); err != nil {
		pubSpan.RecordError(err)
		slog.Warn("publish agent submitted failed", "agent_id", created.ID, "error", err)
	}
	pubSpan.End()

	slog.Info("agent submitted", "agent_id", created.ID, "creator_id", creatorID)
	return created, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// normalizeDraft trims text fields, drops blank and duplicate tags and
// checks the limits.
func normalizeDraft(d models.AgentDraft) (models.AgentDraft, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)

	if d.Name == "" {
		return d, invalid("name is required")
	}
	if utf8.RuneCountInString(d.Name) > MaxNameLength {
		return d, invalid("name must be at most %d characters", MaxNameLength)
	}
	if utf8.RuneCountInString(d.Description) > MaxDescriptionLength {
		return d, invalid("description must be at most %d characters", MaxDescriptionLength)
	}
	if d.Price.IsNegative() {
		return d, invalid("price must not be negative")
	}
	d.Price = d.Price.Round(2)
	if d.Price.GreaterThanOrEqual(maxPrice) {
		return d, invalid("price must be below %s", maxPrice)
	}
	if d.CategoryID == uuid.Nil {
		return d, invalid("category_id is required")
	}

	tags := make([]string, 0, len(d.Tags))
	seen := make(map[string]bool, len(d.Tags))
	for _, t := range d.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return d, invalid("tag %q is longer than %d characters", t, MaxTagLength)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return d, invalid("at most %d tags are allowed", MaxTags)
	}
	d.Tags = tags
	return d, nil
}
