// Package apiclient talks to the marketplace HTTP API. Client implements
// identity.Provider against /api/auth, keeps its access token fresh in the
// background, and wraps the catalog endpoints for command-line use.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"agentmarket/internal/identity"
)

const (
	// DefaultRefreshMargin is how long before expiry the access token is renewed.
	DefaultRefreshMargin = time.Minute

	// retryInterval spaces out refresh attempts after a transport failure.
	retryInterval = 15 * time.Second
)

// Client is a marketplace API client holding at most one session.
type Client struct {
	baseURL       string
	http          *http.Client
	sessionFile   string
	refreshMargin time.Duration
	now           func() time.Time

	mu      sync.Mutex
	session *identity.Session
	loaded  bool
	timer   *time.Timer
	closed  bool

	subsMu sync.RWMutex
	subs   map[*subscription]struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionFile persists the session to path so it survives restarts.
func WithSessionFile(path string) Option {
	return func(c *Client) { c.sessionFile = path }
}

// WithRefreshMargin sets how early the access token is renewed.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Client) { c.refreshMargin = d }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
		refreshMargin: DefaultRefreshMargin,
		now:           time.Now,
		subs:          make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops the refresh loop and ends every subscription. The session
// file is left in place.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.subsMu.Lock()
	subs := c.subs
	c.subs = make(map[*subscription]struct{})
	c.subsMu.Unlock()
	for s := range subs {
		s.cancel()
	}
}

// errorBody is the API's error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// do sends a JSON request and decodes a JSON response into out (when
// non-nil). Non-2xx responses become *identity.ProviderError.
func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(respBody, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(respBody))
		}
		return &identity.ProviderError{Status: resp.StatusCode, Code: eb.Code, Message: eb.Error}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
