// Package cache provides Valkey (Redis-compatible) client initialization
// and the JSON read-through cache used by the catalog.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options locates a Valkey server. DB selects the logical database; tests
// use a separate one.
type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// ConnectValkey creates a Valkey client and verifies the connection with a
// ping bounded by ctx.
func ConnectValkey(ctx context.Context, o Options) (*redis.Client, error) {
	addr := net.JoinHostPort(o.Host, o.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr, "db", o.DB)
	return client, nil
}
