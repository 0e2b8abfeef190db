package identity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrEmailTaken         = errors.New("User already registered")
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrWeakPassword       = errors.New("Password should be at least 8 characters")
	ErrInvalidToken       = errors.New("Token has expired or is invalid")
	ErrUnauthenticated    = errors.New("Not authenticated")
)

// codes maps each sentinel to the machine-readable code sent on the wire.
var codes = map[error]string{
	ErrInvalidCredentials: "invalid_credentials",
	ErrEmailNotConfirmed:  "email_not_confirmed",
	ErrEmailTaken:         "email_taken",
	ErrInvalidEmail:       "invalid_email",
	ErrWeakPassword:       "weak_password",
	ErrInvalidToken:       "invalid_token",
	ErrUnauthenticated:    "unauthenticated",
}

// Code returns the wire code for err, or "" if err is not an identity error.
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// FromCode returns the sentinel for a wire code, or nil if unknown.
func FromCode(code string) error {
	for sentinel, c := range codes {
		if c == code {
			return sentinel
		}
	}
	return nil
}

// ProviderError is a rejection reported by a remote identity provider.
// Message is the provider's text, suitable for showing to the user.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider error (status %d)", e.Status)
	}
	return e.Message
}

// Unwrap exposes the sentinel matching Code so errors.Is works across
// the wire.
func (e *ProviderError) Unwrap() error {
	return FromCode(e.Code)
}
