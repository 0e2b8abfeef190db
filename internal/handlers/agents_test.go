package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentmarket/internal/catalog"
	"agentmarket/internal/models"
)

func TestListAgents(t *testing.T) {
	f := &fakeCatalog{page: &models.AgentPage{
		Agents:     []models.Agent{{ID: uuid.New(), Name: "ChatBot Nigeria", Price: decimal.RequireFromString("49.99"), Status: models.AgentStatusApproved}},
		Pagination: models.NewPagination(1, 2, 3),
	}}
	c := NewCatalog(f)

	rec := serve(http.HandlerFunc(c.ListAgents), http.MethodGet, "/api/agents?category=all&search=chat&sortBy=newest&page=1&limit=2", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	want := models.ListingQuery{Search: "chat", SortBy: models.SortNewest, Page: 1, Limit: 2}
	if f.gotQuery != want {
		t.Errorf("query: got %+v, want %+v", f.gotQuery, want)
	}

	body := decodeBody(t, rec)
	pag := body["pagination"].(map[string]any)
	if pag["total"] != float64(3) || pag["totalPages"] != float64(2) {
		t.Errorf("pagination: got %v", pag)
	}
	agents := body["agents"].([]any)
	if price := agents[0].(map[string]any)["price"]; price != 49.99 {
		t.Errorf("price should be a JSON number, got %#v", price)
	}
}

func TestListAgentsDefaults(t *testing.T) {
	f := &fakeCatalog{page: &models.AgentPage{Agents: []models.Agent{}}}
	c := NewCatalog(f)

	serve(http.HandlerFunc(c.ListAgents), http.MethodGet, "/api/agents?page=abc&limit=1000&sortBy=bogus", "", nil)

	want := models.ListingQuery{SortBy: models.SortPopular, Page: 1, Limit: models.MaxLimit}
	if f.gotQuery != want {
		t.Errorf("query: got %+v, want %+v", f.gotQuery, want)
	}
}

func TestListAgentsStoreFailure(t *testing.T) {
	f := &fakeCatalog{err: &catalog.StoreError{Op: "list agents", Err: errors.New("connection refused")}}
	c := NewCatalog(f)

	rec := serve(http.HandlerFunc(c.ListAgents), http.MethodGet, "/api/agents", "", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Failed to fetch agents" {
		t.Errorf("error: got %q", got)
	}
}

func TestGetAgent(t *testing.T) {
	id := uuid.New()
	f := &fakeCatalog{agent: &models.Agent{ID: id, Name: "Invoice Bot"}}
	r := chi.NewRouter()
	r.Get("/api/agents/{id}", NewCatalog(f).GetAgent)

	rec := serve(r, http.MethodGet, "/api/agents/"+id.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	agent := decodeBody(t, rec)["agent"].(map[string]any)
	if agent["name"] != "Invoice Bot" {
		t.Errorf("name: got %v", agent["name"])
	}

	rec = serve(r, http.MethodGet, "/api/agents/not-a-uuid", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad id status: got %d, want 404", rec.Code)
	}

	f.err = catalog.ErrNotFound
	rec = serve(r, http.MethodGet, "/api/agents/"+uuid.NewString(), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status: got %d, want 404", rec.Code)
	}
}

func TestCreateAgent(t *testing.T) {
	f := &fakeCatalog{}
	c := NewCatalog(f)
	p := creatorPrincipal()

	body := `{"name":"New Bot","description":"d","tags":["x"],"price":19.5,"category_id":"` + uuid.NewString() + `","status":"approved","total_sales":999}`
	rec := serve(http.HandlerFunc(c.CreateAgent), http.MethodPost, "/api/agents", body, p)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if f.gotCreator != p.UserID {
		t.Errorf("creator: got %v, want %v", f.gotCreator, p.UserID)
	}
	if !f.gotDraft.Price.Equal(decimal.RequireFromString("19.5")) {
		t.Errorf("price: got %v", f.gotDraft.Price)
	}
	agent := decodeBody(t, rec)["agent"].(map[string]any)
	if agent["status"] != "pending" {
		t.Errorf("status: got %v, want pending", agent["status"])
	}
}

func TestCreateAgentErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		anon    bool
		want    int
		wantMsg string
	}{
		{"anonymous", `{"name":"x"}`, catalog.ErrUnauthorized, true, http.StatusUnauthorized, "Unauthorized"},
		{"malformed body", `{"name":`, nil, false, http.StatusBadRequest, "Invalid request body"},
		{"invalid draft", `{"name":""}`, errors.Join(catalog.ErrInvalidDraft, errors.New("name is required")), false, http.StatusBadRequest, ""},
		{"store failure", `{"name":"x"}`, &catalog.StoreError{Op: "create agent", Err: errors.New("boom")}, false, http.StatusInternalServerError, "Failed to create agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCatalog{err: tt.err}
			p := creatorPrincipal()
			if tt.anon {
				p = nil
			}
			rec := serve(http.HandlerFunc(NewCatalog(f).CreateAgent), http.MethodPost, "/api/agents", tt.body, p)

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.want)
			}
			msg := decodeBody(t, rec)["error"]
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("error: got %q, want %q", msg, tt.wantMsg)
			}
			if tt.anon && f.gotCreator != uuid.Nil {
				t.Errorf("anonymous submit should carry no creator, got %v", f.gotCreator)
			}
		})
	}
}

func TestListCreatorAgents(t *testing.T) {
	f := &fakeCatalog{page: &models.AgentPage{Agents: []models.Agent{}}}
	c := NewCatalog(f)
	p := creatorPrincipal()

	rec := serve(http.HandlerFunc(c.ListCreatorAgents), http.MethodGet, "/api/creator/agents?page=2", "", p)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if f.gotCreator != p.UserID {
		t.Errorf("creator: got %v", f.gotCreator)
	}
	if f.gotQuery.SortBy != models.SortNewest || f.gotQuery.Page != 2 {
		t.Errorf("query: got %+v", f.gotQuery)
	}

	rec = serve(http.HandlerFunc(c.ListCreatorAgents), http.MethodGet, "/api/creator/agents", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status: got %d, want 401", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	f := &fakeCatalog{categories: []models.Category{{Name: "Customer Service", Slug: "customer-service", Color: "#3b82f6"}}}
	rec := serve(http.HandlerFunc(NewCatalog(f).ListCategories), http.MethodGet, "/api/categories", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	cats := decodeBody(t, rec)["categories"].([]any)
	if len(cats) != 1 || cats[0].(map[string]any)["slug"] != "customer-service" {
		t.Errorf("categories: got %v", cats)
	}
}

func TestCreateCategory(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		want    int
		wantMsg string
	}{
		{"created", `{"name":"Legal","slug":"legal"}`, nil, http.StatusCreated, ""},
		{"bad body", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"invalid", `{"name":""}`, fmt.Errorf("%w: name is required", catalog.ErrInvalidCategory), http.StatusBadRequest, "invalid category: name is required"},
		{"taken", `{"name":"Finance"}`, catalog.ErrCategoryExists, http.StatusConflict, "category already exists"},
		{"store failure", `{"name":"x"}`, &catalog.StoreError{Op: "create category", Err: errors.New("boom")}, http.StatusInternalServerError, "Failed to create category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCatalog{err: tt.err}
			rec := serve(http.HandlerFunc(NewCatalog(f).CreateCategory), http.MethodPost, "/api/admin/categories", tt.body, nil)

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.want)
			}
			body := decodeBody(t, rec)
			if tt.wantMsg != "" && body["error"] != tt.wantMsg {
				t.Errorf("error: got %q, want %q", body["error"], tt.wantMsg)
			}
			if tt.want == http.StatusCreated {
				cat := body["category"].(map[string]any)
				if cat["slug"] != "legal" || f.gotCategory.Name != "Legal" {
					t.Errorf("category: got %v, draft %+v", cat, f.gotCategory)
				}
			}
		})
	}
}

func TestDeleteCategory(t *testing.T) {
	f := &fakeCatalog{}
	r := chi.NewRouter()
	r.Delete("/api/admin/categories/{id}", NewCatalog(f).DeleteCategory)

	id := uuid.New()
	rec := serve(r, http.MethodDelete, "/api/admin/categories/"+id.String(), "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if f.deletedID != id {
		t.Errorf("deleted: got %v, want %v", f.deletedID, id)
	}

	rec = serve(r, http.MethodDelete, "/api/admin/categories/not-a-uuid", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad id status: got %d, want 404", rec.Code)
	}

	for err, want := range map[error]int{
		catalog.ErrCategoryNotFound: http.StatusNotFound,
		catalog.ErrCategoryInUse:    http.StatusConflict,
		&catalog.StoreError{Op: "delete category", Err: errors.New("boom")}: http.StatusInternalServerError,
	} {
		f.err = err
		rec = serve(r, http.MethodDelete, "/api/admin/categories/"+uuid.NewString(), "", nil)
		if rec.Code != want {
			t.Errorf("%v: got %d, want %d", err, rec.Code, want)
		}
	}
}
