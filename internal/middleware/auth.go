// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"agentmarket/internal/models"
	"agentmarket/internal/session"
	"agentmarket/internal/token"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// PrincipalKey is the context key for the authenticated caller.
	PrincipalKey contextKey = "principal"
)

// AuthMethod records how a request was authenticated.
type AuthMethod string

const (
	AuthBearer AuthMethod = "bearer"
	AuthCookie AuthMethod = "cookie"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
	Method AuthMethod
	// SessionID is the server-side session, set for cookie authentication.
	SessionID string
}

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// SessionLookup resolves a session, by id for cookies or by handle for
// access tokens, to its data.
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (*session.Data, error)
	LookupHandle(ctx context.Context, handle string) (*session.Data, error)
}

// LoadIdentity resolves the caller from an "Authorization: Bearer" access
// token or, failing that, the session cookie, and stores it in the request
// context. An access token only counts while the session it was issued
// for is alive. It does NOT enforce authentication; an invalid credential
// just leaves the request anonymous.
func LoadIdentity(tokens TokenParser, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := principalFromRequest(r, tokens, sessions); p != nil {
				r = r.WithContext(context.WithValue(r.Context(), PrincipalKey, p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principalFromRequest(r *http.Request, tokens TokenParser, sessions SessionLookup) *Principal {
	if raw, ok := bearerToken(r); ok {
		claims, err := tokens.Parse(raw)
		if err != nil {
			slog.Debug("rejected access token", "error", err)
			return nil
		}
		id, err := claims.UserID()
		if err != nil {
			return nil
		}
		data, err := sessions.LookupHandle(r.Context(), claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				slog.Warn("session lookup failed", "error", err)
			}
			return nil
		}
		if data == nil || data.UserID != id {
			return nil
		}
		return &Principal{UserID: id, Email: claims.Email, Role: models.ParseRole(string(claims.Role)), Method: AuthBearer}
	}

	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	data, err := sessions.Lookup(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Warn("session lookup failed", "error", err)
		}
		return nil
	}
	if data == nil {
		return nil
	}
	return &Principal{
		UserID:    data.UserID,
		Email:     data.Email,
		Role:      models.ParseRole(string(data.Role)),
		Method:    AuthCookie,
		SessionID: cookie.Value,
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAuth answers 401 when no caller was loaded.
// Must be applied after LoadIdentity in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 403 unless the caller holds one of roles.
// Must be applied after RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromCtx(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// PrincipalFromCtx extracts the caller from the request context.
// Returns nil if the request is anonymous.
func PrincipalFromCtx(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// writeError writes the API's JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
