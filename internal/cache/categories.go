// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// categories.go caches the category list in Valkey. Categories change
// rarely and are read on every catalog page load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"agentmarket/internal/models"
)

const (
	// categoriesKey is the Valkey key holding the JSON category list.
	categoriesKey = "catalog:categories"

	// DefaultCategoryTTL is how long the category list stays cached.
	DefaultCategoryTTL = 10 * time.Minute
)

// CategoryCache stores the category list as JSON in Valkey. Errors are
// logged and treated as misses.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a category cache backed by the given Valkey client.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryCache{client: client, ttl: ttl}
}

// Get returns the cached categories. The bool is false on a miss.
func (c *CategoryCache) Get(ctx context.Context) ([]models.Category, bool) {
	val, err := c.client.Get(ctx, categoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category cache get error", "error", err)
		return nil, false
	}

	var cats []models.Category
	if err := json.Unmarshal(val, &cats); err != nil {
		slog.Warn("category cache decode error", "error", err)
		return nil, false
	}
	slog.Debug("category cache hit", "count", len(cats))
	return cats, true
}

// Set stores the category list with the configured TTL.
func (c *CategoryCache) Set(ctx context.Context, cats []models.Category) {
	val, err := json.Marshal(cats)
	if err != nil {
		slog.Warn("category cache encode error", "error", err)
		return
	}
	if err := c.client.Set(ctx, categoriesKey, val, c.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "error", err)
	}
}

// Invalidate drops the cached list.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, categoriesKey).Err(); err != nil {
		slog.Warn("category cache invalidate error", "error", err)
	}
}
