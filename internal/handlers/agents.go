package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agentmarket/internal/catalog"
	"agentmarket/internal/middleware"
	"agentmarket/internal/models"
)

// CatalogService is the catalog behaviour the handlers expose.
type CatalogService interface {
	ListApproved(ctx context.Context, q models.ListingQuery) (*models.AgentPage, error)
	GetApproved(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, q models.ListingQuery) (*models.AgentPage, error)
	Categories(ctx context.Context) ([]models.Category, error)
	SubmitListing(ctx context.Context, draft models.AgentDraft, creatorID uuid.UUID) (*models.Agent, error)
	CreateCategory(ctx context.Context, draft models.CategoryDraft) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

var _ CatalogService = (*catalog.Service)(nil)

// Catalog groups the agent and category endpoints.
type Catalog struct {
	svc CatalogService
}

// NewCatalog creates a new Catalog handler group.
func NewCatalog(svc CatalogService) *Catalog {
	return &Catalog{svc: svc}
}

type agentResponse struct {
	Agent *models.Agent `json:"agent"`
}

type categoryResponse struct {
	Category *models.Category `json:"category"`
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

func listingQuery(r *http.Request) models.ListingQuery {
	v := r.URL.Query()
	return models.ParseListingQuery(v.Get("category"), v.Get("search"), v.Get("sortBy"), v.Get("page"), v.Get("limit"))
}

// ListAgents serves GET /api/agents: one page of approved listings.
func (c *Catalog) ListAgents(w http.ResponseWriter, r *http.Request) {
	page, err := c.svc.ListApproved(r.Context(), listingQuery(r))
	if err != nil {
		writeError(w, r, err, "Failed to fetch agents")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetAgent serves GET /api/agents/{id}.
func (c *Catalog) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, catalog.ErrNotFound, "")
		return
	}
	agent, err := c.svc.GetApproved(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Failed to fetch agent")
		return
	}
	writeJSON(w, http.StatusOK, agentResponse{Agent: agent})
}

// CreateAgent serves POST /api/agents. The listing is owned by the caller
// and always starts pending review.
func (c *Catalog) CreateAgent(w http.ResponseWriter, r *http.Request) {
	creatorID := uuid.Nil
	if p := middleware.PrincipalFromCtx(r.Context()); p != nil {
		creatorID = p.UserID
	}

	var draft models.AgentDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err, "")
		return
	}

	agent, err := c.svc.SubmitListing(r.Context(), draft, creatorID)
	if err != nil {
		writeError(w, r, err, "Failed to create agent")
		return
	}
	writeJSON(w, http.StatusCreated, agentResponse{Agent: agent})
}

// ListCreatorAgents serves GET /api/creator/agents: the caller's own
// listings in every status.
func (c *Catalog) ListCreatorAgents(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeError(w, r, catalog.ErrUnauthorized, "")
		return
	}
	v := r.URL.Query()
	sortBy := v.Get("sortBy")
	if sortBy == "" {
		sortBy = string(models.SortNewest)
	}
	q := models.ParseListingQuery("", v.Get("search"), sortBy, v.Get("page"), v.Get("limit"))

	page, err := c.svc.ListByCreator(r.Context(), p.UserID, q)
	if err != nil {
		writeError(w, r, err, "Failed to fetch agents")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListCategories serves GET /api/categories.
func (c *Catalog) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := c.svc.Categories(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch categories")
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: cats})
}

// CreateCategory serves POST /api/admin/categories.
func (c *Catalog) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var draft models.CategoryDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err, "")
		return
	}
	cat, err := c.svc.CreateCategory(r.Context(), draft)
	if err != nil {
		writeError(w, r, err, "Failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{Category: cat})
}

// DeleteCategory serves DELETE /api/admin/categories/{id}.
func (c *Catalog) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, catalog.ErrCategoryNotFound, "")
		return
	}
	if err := c.svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
