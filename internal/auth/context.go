// Package auth issues and verifies bearer tokens and carries the
// authenticated principal through request contexts.
//
// This package is imported by both middleware and handler packages without
// causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the identity a verified token carries.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   domain.Role
}

// ActorID returns the user id as a pointer, the shape lifecycle parameters
// expect for the acting user.
func (p *Principal) ActorID() *uuid.UUID {
	if p == nil {
		return nil
	}
	id := p.UserID
	return &id
}

// GetPrincipal retrieves the authenticated principal from the context.
//
// Returns nil if no user is authenticated.
func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// GetPrincipalFromRequest is a convenience wrapper around GetPrincipal.
func GetPrincipalFromRequest(r *http.Request) *Principal {
	return GetPrincipal(r.Context())
}

// SetPrincipal stores p in the context. Called by the authentication
// middleware after the bearer token verifies.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
