// Package token issues and verifies the HS256 access tokens handed to
// signed-in clients.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"agentmarket/internal/models"
)

// Issuer name written to and required in every token.
const issuerName = "agentmarket"

var (
	// ErrInvalid is returned for malformed, tampered or foreign tokens.
	ErrInvalid = errors.New("invalid access token")
	// ErrExpired is returned for well-formed tokens past their expiry.
	ErrExpired = errors.New("access token expired")
)

// Claims are the access token claims. The subject is the user id and
// SessionID the handle of the session the token was issued for.
type Claims struct {
	Email     string              `json:"email"`
	Role      models.Role         `json:"role"`
	Metadata  models.UserMetadata `json:"user_metadata"`
	SessionID string              `json:"sid"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalid)
	}
	return id, nil
}

// Issuer signs and verifies access tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer whose tokens live for ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the access token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs an access token for u within the session named by
// sessionID and returns it with its expiry.
func (i *Issuer) Issue(u *models.User, sessionID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	meta := u.Metadata.Normalize()
	claims := Claims{
		Email:     u.Email,
		Role:      meta.Role,
		Metadata:  meta,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the signature, algorithm, issuer and expiry of a token.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrInvalid
	}
	claims.Role = models.ParseRole(string(claims.Role))
	return claims, nil
}
