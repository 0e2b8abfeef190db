package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"agentmarket/internal/models"
	"agentmarket/internal/store"
)

// fakeAgents is an in-memory AgentRepository with the same filter and
// ordering semantics as the SQL store.
type fakeAgents struct {
	mu      sync.Mutex
	rows    []models.Agent
	calls   int
	err     error
	lastF   store.AgentFilter
	created []models.Agent
}

func (f *fakeAgents) match(a models.Agent, flt store.AgentFilter) bool {
	if flt.Status != "" && a.Status != flt.Status {
		return false
	}
	if flt.CategorySlug != "" && (a.Category == nil || a.Category.Slug != flt.CategorySlug) {
		return false
	}
	if flt.CreatorID != uuid.Nil && a.CreatorID != flt.CreatorID {
		return false
	}
	if term := strings.TrimSpace(flt.Search); term != "" {
		lt := strings.ToLower(term)
		hit := strings.Contains(strings.ToLower(a.Name), lt) || strings.Contains(strings.ToLower(a.Description), lt)
		for _, tag := range a.Tags {
			if tag == term {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func less(a, b models.Agent, key models.SortKey) bool {
	var c int
	switch models.ParseSortKey(string(key)) {
	case models.SortRating:
		c = cmpFloat(b.Rating, a.Rating)
	case models.SortPriceLow:
		c = a.Price.Cmp(b.Price)
	case models.SortPriceHigh:
		c = b.Price.Cmp(a.Price)
	case models.SortNewest:
		c = b.CreatedAt.Compare(a.CreatedAt)
	default:
		c = b.TotalSales - a.TotalSales
	}
	if c != 0 {
		return c < 0
	}
	return a.ID.String() < b.ID.String()
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (f *fakeAgents) filtered(flt store.AgentFilter) []models.Agent {
	var out []models.Agent
	for _, a := range f.rows {
		if f.match(a, flt) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], flt.SortBy) })
	return out
}

func (f *fakeAgents) List(_ context.Context, flt store.AgentFilter) ([]models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastF = flt
	if f.err != nil {
		return nil, f.err
	}
	all := f.filtered(flt)
	if flt.Offset >= len(all) {
		return []models.Agent{}, nil
	}
	end := len(all)
	if flt.Limit > 0 && flt.Offset+flt.Limit < end {
		end = flt.Offset + flt.Limit
	}
	return append([]models.Agent{}, all[flt.Offset:end]...), nil
}

func (f *fakeAgents) Count(_ context.Context, flt store.AgentFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return len(f.filtered(flt)), nil
}

func (f *fakeAgents) FindByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.rows {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAgents) Create(_ context.Context, a *models.Agent) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *a
	cp.ID = uuid.New()
	f.rows = append(f.rows, cp)
	f.created = append(f.created, cp)
	return &cp, nil
}

type fakeCategories struct {
	rows  []models.Category
	calls int
	err   error
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Category{}, f.rows...), nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.rows {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.rows {
		if c.Slug == slug {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *c
	if cp.Slug == "" {
		cp.Slug = strings.ToLower(strings.ReplaceAll(cp.Name, " ", "-"))
	}
	for _, row := range f.rows {
		if row.Slug == cp.Slug {
			return nil, fmt.Errorf("create category %q: %w", cp.Slug, store.ErrDuplicateSlug)
		}
	}
	cp.ID = uuid.New()
	f.rows = append(f.rows, cp)
	return &cp, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for i, c := range f.rows {
		if c.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrCategoryNotFound
}

type memCache struct {
	cats        []models.Category
	hit         bool
	sets        int
	invalidated int
}

func (m *memCache) Get(context.Context) ([]models.Category, bool) {
	return m.cats, m.hit
}

func (m *memCache) Set(_ context.Context, cats []models.Category) {
	m.cats, m.hit = cats, true
	m.sets++
}

func (m *memCache) Invalidate(context.Context) {
	m.cats, m.hit = nil, false
	m.invalidated++
}

type recordingPublisher struct {
	subjects []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data any) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

func (p *recordingPublisher) Close() {}
