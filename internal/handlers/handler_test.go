// handler_test.go provides shared fakes and request helpers for the
// handler unit tests. End-to-end tests against PostgreSQL and Valkey live
// with the router.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"agentmarket/internal/identity"
	"agentmarket/internal/middleware"
	"agentmarket/internal/models"
)

// fakeCatalog implements CatalogService with canned results.
type fakeCatalog struct {
	page       *models.AgentPage
	agent      *models.Agent
	categories []models.Category
	err        error

	gotQuery   models.ListingQuery
	gotDraft   models.AgentDraft
	gotCreator uuid.UUID
	submits    int

	gotCategory models.CategoryDraft
	deletedID   uuid.UUID
}

func (f *fakeCatalog) ListApproved(_ context.Context, q models.ListingQuery) (*models.AgentPage, error) {
	f.gotQuery = q
	return f.page, f.err
}

func (f *fakeCatalog) GetApproved(_ context.Context, _ uuid.UUID) (*models.Agent, error) {
	return f.agent, f.err
}

func (f *fakeCatalog) ListByCreator(_ context.Context, creatorID uuid.UUID, q models.ListingQuery) (*models.AgentPage, error) {
	f.gotCreator = creatorID
	f.gotQuery = q
	return f.page, f.err
}

func (f *fakeCatalog) Categories(context.Context) ([]models.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) SubmitListing(_ context.Context, draft models.AgentDraft, creatorID uuid.UUID) (*models.Agent, error) {
	f.submits++
	f.gotDraft = draft
	f.gotCreator = creatorID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Agent{ID: uuid.New(), Name: draft.Name, Price: draft.Price, CreatorID: creatorID, Status: models.AgentStatusPending}, nil
}

func (f *fakeCatalog) CreateCategory(_ context.Context, draft models.CategoryDraft) (*models.Category, error) {
	f.gotCategory = draft
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: uuid.New(), Name: draft.Name, Slug: draft.Slug, Color: draft.Color}, nil
}

func (f *fakeCatalog) DeleteCategory(_ context.Context, id uuid.UUID) error {
	f.deletedID = id
	return f.err
}

// fakeIdentity implements IdentityService.
type fakeIdentity struct {
	session  *identity.Session
	signUp   *identity.SignUpResult
	user     *models.User
	err      error
	gotToken string
	gotEmail string
	gotRedir string
	gotMeta  models.UserMetadata
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string, meta models.UserMetadata) (*identity.SignUpResult, error) {
	f.gotEmail, f.gotMeta = email, meta
	return f.signUp, f.err
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*identity.Session, error) {
	f.gotEmail = email
	return f.session, f.err
}

func (f *fakeIdentity) Refresh(_ context.Context, tok string) (*identity.Session, error) {
	f.gotToken = tok
	return f.session, f.err
}

func (f *fakeIdentity) SignOut(_ context.Context, tok string) error {
	f.gotToken = tok
	return f.err
}

func (f *fakeIdentity) RequestRecovery(_ context.Context, email, redirectTo string) error {
	f.gotEmail, f.gotRedir = email, redirectTo
	return f.err
}

func (f *fakeIdentity) ResetPassword(_ context.Context, tok, _ string) error {
	f.gotToken = tok
	return f.err
}

func (f *fakeIdentity) VerifyEmail(_ context.Context, tok string) (*models.User, error) {
	f.gotToken = tok
	return f.user, f.err
}

func (f *fakeIdentity) User(context.Context, uuid.UUID) (*models.User, error) {
	return f.user, f.err
}

// fakeCookies records cookie writes.
type fakeCookies struct {
	set     []string
	cleared int
}

func (f *fakeCookies) SetCookie(_ http.ResponseWriter, id string) { f.set = append(f.set, id) }
func (f *fakeCookies) ClearCookie(http.ResponseWriter)            { f.cleared++ }

// serve runs h for a request, optionally as principal p.
func serve(h http.Handler, method, target, body string, p *middleware.Principal) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes a JSON response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func creatorPrincipal() *middleware.Principal {
	return &middleware.Principal{UserID: uuid.New(), Role: models.RoleCreator, Method: middleware.AuthBearer}
}
