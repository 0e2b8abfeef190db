package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"agentmarket/internal/models"
)

type agentResponse struct {
	Agent models.Agent `json:"agent"`
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

func listingValues(q models.ListingQuery) url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sortBy", string(q.SortBy))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

// ListAgents fetches one page of the public catalog.
func (c *Client) ListAgents(ctx context.Context, q models.ListingQuery) (*models.AgentPage, error) {
	var page models.AgentPage
	if err := c.do(ctx, http.MethodGet, withQuery("/api/agents", listingValues(q)), "", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAgent fetches one approved listing.
func (c *Client) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var resp agentResponse
	if err := c.do(ctx, http.MethodGet, "/api/agents/"+id.String(), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Agent, nil
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var resp categoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/categories", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// SubmitAgent submits a listing for review as the signed-in user.
func (c *Client) SubmitAgent(ctx context.Context, draft models.AgentDraft) (*models.Agent, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp agentResponse
	if err := c.do(ctx, http.MethodPost, "/api/agents", tok, draft, &resp); err != nil {
		return nil, err
	}
	return &resp.Agent, nil
}

// MyAgents lists the signed-in creator's own listings in every status.
func (c *Client) MyAgents(ctx context.Context, page, limit int) (*models.AgentPage, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	v := listingValues(models.ListingQuery{Page: page, Limit: limit})
	var resp models.AgentPage
	if err := c.do(ctx, http.MethodGet, withQuery("/api/creator/agents", v), tok, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
