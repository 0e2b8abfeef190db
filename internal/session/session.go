// Package session provides Valkey-backed sessions and one-time tokens.
// A session id doubles as the refresh token for API clients and as the
// value of the session cookie for browsers. Session payloads are stored as
// JSON in Valkey with automatic TTL expiry, keyed by the session's handle
// (a digest of the id) so access tokens can name a session without
// carrying the id itself.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agentmarket/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "am_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// tokenPrefix namespaces one-time tokens.
	tokenPrefix = "token:"

	// userPrefix namespaces the per-user set of session handles.
	userPrefix = "user_sessions:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("session not found")

	// ErrTokenInvalid is returned when a one-time token is unknown,
	// expired or already used.
	ErrTokenInvalid = errors.New("token is invalid or has expired")
)

// Purpose scopes a one-time token to a single flow.
type Purpose string

const (
	PurposeRecovery     Purpose = "recovery"
	PurposeConfirmEmail Purpose = "confirm"
)

// Data holds the session payload stored in Valkey.
type Data struct {
	UserID    uuid.UUID   `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// A zero ttl selects DefaultTTL; secure marks cookies Secure.
func NewStore(client *redis.Client, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, secure: secure}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create generates a new session and stores it in Valkey. Returns the
// session ID.
func (s *Store) Create(ctx context.Context, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	handle := Handle(id)
	userKey := userPrefix + data.UserID.String()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+handle, payload, s.ttl)
		pipe.SAdd(ctx, userKey, handle)
		pipe.Expire(ctx, userKey, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	return id, nil
}

// Handle returns the public name of session id: the hex SHA-256 of the id.
// Access tokens carry the handle; only the id can refresh or end a session.
func Handle(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the session for id. An unknown or expired id yields
// ErrNotFound.
func (s *Store) Lookup(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return s.LookupHandle(ctx, Handle(id))
}

// LookupHandle returns the session named by handle. An unknown or expired
// handle yields ErrNotFound.
func (s *Store) LookupHandle(ctx context.Context, handle string) (*Data, error) {
	if handle == "" {
		return nil, ErrNotFound
	}
	payload, err := s.client.Get(ctx, keyPrefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Get retrieves session data using the session ID from the request
// cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session (not an error)
	}
	data, err := s.Lookup(ctx, cookie.Value)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// Rotate atomically consumes the session id and issues a new one with the
// same payload. A reused or expired id yields ErrNotFound.
func (s *Store) Rotate(ctx context.Context, id string) (string, *Data, error) {
	if id == "" {
		return "", nil, ErrNotFound
	}
	handle := Handle(id)
	payload, err := s.client.GetDel(ctx, keyPrefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("session rotate: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return "", nil, fmt.Errorf("session unmarshal: %w", err)
	}
	s.client.SRem(ctx, userPrefix+data.UserID.String(), handle)

	newID, err := s.Create(ctx, &data)
	if err != nil {
		return "", nil, err
	}
	return newID, &data, nil
}

// Destroy removes the session from Valkey. Unknown ids are ignored.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+Handle(id)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

// RevokeUser ends every session of userID.
func (s *Store) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	userKey := userPrefix + userID.String()
	handles, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	keys := make([]string, 0, len(handles)+1)
	for _, h := range handles {
		keys = append(keys, keyPrefix+h)
	}
	keys = append(keys, userKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	return nil
}

// SetCookie writes the session cookie for id.
func (s *Store) SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// ClearCookie expires the session cookie immediately.
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
}

// IssueToken creates a single-use token for purpose that resolves to
// userID until ttl elapses. Only a hash of the token is stored.
func (s *Store) IssueToken(ctx context.Context, purpose Purpose, userID uuid.UUID, ttl time.Duration) (string, error) {
	tok, err := generateID()
	if err != nil {
		return "", fmt.Errorf("token generate: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(purpose, tok), userID.String(), ttl).Err(); err != nil {
		return "", fmt.Errorf("token store: %w", err)
	}
	return tok, nil
}

// ConsumeToken redeems a token issued for purpose and returns its user.
// A token can be consumed once.
func (s *Store) ConsumeToken(ctx context.Context, purpose Purpose, tok string) (uuid.UUID, error) {
	if tok == "" {
		return uuid.Nil, ErrTokenInvalid
	}
	val, err := s.client.GetDel(ctx, tokenKey(purpose, tok)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrTokenInvalid
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("token consume: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

func tokenKey(purpose Purpose, tok string) string {
	return tokenPrefix + string(purpose) + ":" + Handle(tok)
}

// generateID creates a cryptographically random identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
