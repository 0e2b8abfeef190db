// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the marketplace.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
	RoleUser    Role = "user"
)

// ParseRole maps a raw role claim to a known Role. Absent or unrecognized
// claims resolve to RoleUser.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleCreator, RoleUser:
		return Role(s)
	default:
		return RoleUser
	}
}

// MetadataVersion is the current UserMetadata schema version.
const MetadataVersion = 1

// UserMetadata is the profile blob attached to every identity.
// It is stored as JSONB and embedded in access token claims.
type UserMetadata struct {
	Version   int     `json:"version"`
	Role      Role    `json:"role"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Username  *string `json:"username,omitempty"`
}

// Normalize fills the version and resolves the role claim.
func (m UserMetadata) Normalize() UserMetadata {
	m.Version = MetadataVersion
	m.Role = ParseRole(string(m.Role))
	return m
}

// Value implements driver.Valuer for the JSONB metadata column.
func (m UserMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal user metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB metadata column.
func (m *UserMetadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = UserMetadata{Version: MetadataVersion, Role: RoleUser}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan user metadata: unsupported type %T", src)
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return fmt.Errorf("scan user metadata: %w", err)
	}
	*m = m.Normalize()
	return nil
}

// User represents a marketplace account and its public profile.
type User struct {
	ID               uuid.UUID    `json:"id"`
	Email            string       `json:"email"`
	PasswordHash     string       `json:"-"` // Never serialize the hash
	Metadata         UserMetadata `json:"user_metadata"`
	EmailConfirmedAt *time.Time   `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Role returns the user's resolved role claim.
func (u *User) Role() Role {
	return ParseRole(string(u.Metadata.Role))
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role() == RoleAdmin
}

// EmailConfirmed reports whether the address has been verified.
func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}
