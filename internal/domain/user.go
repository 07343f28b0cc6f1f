// Package domain contains core business types and interfaces.
//
// This file defines the User domain type, the closed set of roles and the
// officer performance counters.
package domain

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Roles
// =============================================================================

// Role is the closed set of authorization roles.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts user input into a Role. Matching is case-insensitive and
// tolerates a "ROLE_" prefix.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_"))
	return r, r.IsValid()
}

// =============================================================================
// User Domain Type
// =============================================================================

// User represents a citizen, officer or administrator.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	PasswordHash    string // Never expose this in API responses
	Phone           string
	Role            Role
	Department      string // Officers only
	WardNumber      string // Citizens only
	Enabled         bool   // Officers start disabled until approved
	TicketsResolved int32
	TicketsReopened int32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// IsOfficer returns true if the user holds the officer role.
func (u *User) IsOfficer() bool {
	return u.Role == RoleOfficer
}

// ReopenRate returns the share of resolved tickets that were reopened.
func (u *User) ReopenRate() float64 {
	if u.TicketsResolved == 0 {
		return 0
	}
	return float64(u.TicketsReopened) / float64(u.TicketsResolved)
}

// CreateUserParams contains parameters for creating a user directly
// (administrator seeding and operator tooling).
type CreateUserParams struct {
	Name       string
	Email      string
	Password   string // Raw password, hashed by the service
	Phone      string
	Role       Role
	Department string
	WardNumber string
	Enabled    bool
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// NullFloatValue safely extracts a float pointer from sql.NullFloat64.
func NullFloatValue(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}

// NullUUIDValue safely extracts a uuid pointer from uuid.NullUUID.
func NullUUIDValue(nu uuid.NullUUID) *uuid.UUID {
	if nu.Valid {
		return &nu.UUID
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullUUID converts a uuid pointer to uuid.NullUUID.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{Valid: false}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// ToNullFloat converts a float pointer to sql.NullFloat64.
func ToNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
