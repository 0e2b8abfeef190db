// Package identity defines the identity-provider capability consumed by
// session managers, and implements its server side: password sign-in,
// sign-up, refresh, sign-out, email confirmation and password recovery.
package identity

import (
	"context"
	"time"

	"agentmarket/internal/models"
)

// Session is an authenticated session as handed to clients. RefreshToken
// is the server-side session id.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         models.User `json:"user"`
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SignUpResult is the outcome of a sign-up. Session is nil while the
// email address awaits confirmation.
type SignUpResult struct {
	User    models.User `json:"user"`
	Session *Session    `json:"session"`
}

// EventKind classifies a session change notification.
type EventKind string

const (
	// SessionEstablished fires when a session appears: sign-in, sign-up
	// with an immediate session, or a sign-in in another process.
	SessionEstablished EventKind = "SIGNED_IN"
	// SessionCleared fires on sign-out or when a session cannot be renewed.
	SessionCleared EventKind = "SIGNED_OUT"
	// TokenRefreshed fires when the access token is renewed for the same
	// identity.
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is a session change notification. Session is nil for SessionCleared.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is the identity-provider capability.
type Provider interface {
	// GetSession returns the current session, or nil if there is none.
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	// ResetPasswordForEmail asks the provider to email a recovery link.
	// redirectTo optionally overrides the page the link opens.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	// Subscribe returns a channel of session changes and a function that
	// ends the subscription and closes the channel.
	Subscribe() (<-chan Event, func())
}
