// Package middleware contains HTTP middleware for the CivicPulse API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/handler"
)

// TokenVerifier resolves a bearer token to the caller.
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides authentication middleware functionality.
//
// This struct holds dependencies needed by auth middleware functions.
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	tokens TokenVerifier
	logger *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(tokens TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// =============================================================================
// WithUser Middleware
// =============================================================================

// WithUser is middleware that attempts to load the caller from the
// Authorization header.
//
// This middleware:
// 1. Reads a "Bearer <token>" Authorization header
// 2. If present and valid, stores the principal in the request context
// 3. Continues to the next handler regardless of authentication status
//
// An invalid token is treated like a missing one; RequireUser decides
// whether the route needs a caller.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		p, err := m.tokens.Verify(token)
		if err != nil {
			m.logger.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		annotateUser(r.Context(), p.UserID.String())
		next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(r.Context(), p)))
	})
}

// =============================================================================
// RequireUser Middleware
// =============================================================================

// RequireUser is middleware that requires an authenticated caller.
//
// IMPORTANT: This middleware must be used AFTER WithUser in the middleware chain.
//
// Usage:
//
//	mux.Handle("GET /api/notifications", authMw.WithUser(authMw.RequireUser(h)))
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetPrincipalFromRequest(r) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RequireRole Middleware
// =============================================================================

// RequireRole returns middleware that admits only the listed roles.
//
// IMPORTANT: Use this AFTER RequireUser in the middleware chain.
//
// Usage:
//
//	adminOnly := authMw.RequireRole(domain.RoleAdmin)
//	mux.Handle("PUT /api/complaints/assign-bulk", stack(adminOnly(h)))
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	var allowCitizen, allowOfficer, allowAdmin bool
	for _, role := range roles {
		switch role {
		case domain.RoleCitizen:
			allowCitizen = true
		case domain.RoleOfficer:
			allowOfficer = true
		case domain.RoleAdmin:
			allowAdmin = true
		default:
			panic("middleware: unknown role " + string(role))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.GetPrincipalFromRequest(r)
			if p == nil {
				m.logger.Error("RequireRole called without principal in context")
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}

			var allowed bool
			switch p.Role {
			case domain.RoleCitizen:
				allowed = allowCitizen
			case domain.RoleOfficer:
				allowed = allowOfficer
			case domain.RoleAdmin:
				allowed = allowAdmin
			}
			if !allowed {
				handler.ForbiddenResponse(w, r, m.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /api/auth/me", stack(meHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
	_ handler.RoleGate                = (&AuthMiddleware{}).RequireRole
)
