package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

type authFixture struct {
	issuer *auth.TokenIssuer
	mw     *AuthMiddleware
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("middleware-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return &authFixture{issuer: issuer, mw: NewAuthMiddleware(issuer, discardLogger())}
}

func (f *authFixture) token(t *testing.T, role domain.Role) (string, uuid.UUID) {
	t.Helper()
	user := &domain.User{ID: uuid.New(), Name: "Test " + role.String(), Email: "test@civicpulse.local", Role: role}
	tok, _, err := f.issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok, user.ID
}

// principalEcho reports the principal the handler saw.
func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.GetPrincipalFromRequest(r)
		if p == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("X-Test-User", p.UserID.String())
		w.Header().Set("X-Test-Role", p.Role.String())
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

// =============================================================================
// WithUser Tests
// =============================================================================

func TestWithUser_LoadsPrincipalFromBearerToken(t *testing.T) {
	f := newAuthFixture(t)
	tok, id := f.token(t, domain.RoleOfficer)

	tests := []struct {
		name   string
		header string
	}{
		{name: "canonical", header: "Bearer " + tok},
		{name: "lowercase scheme", header: "bearer " + tok},
		{name: "padded token", header: "Bearer  " + tok + " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/complaints/assigned", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			f.mw.WithUser(principalEcho()).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected principal in context, got status %d", rec.Code)
			}
			if rec.Header().Get("X-Test-User") != id.String() {
				t.Errorf("unexpected user %q", rec.Header().Get("X-Test-User"))
			}
			if rec.Header().Get("X-Test-Role") != domain.RoleOfficer.String() {
				t.Errorf("unexpected role %q", rec.Header().Get("X-Test-Role"))
			}
		})
	}
}

func TestWithUser_ContinuesAnonymously(t *testing.T) {
	f := newAuthFixture(t)
	other, err := auth.NewTokenIssuer("some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	foreign, _, err := other.Issue(&domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "foreign signature", header: "Bearer " + foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/complaints/categories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			f.mw.WithUser(principalEcho()).ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("expected anonymous request to reach handler, got %d", rec.Code)
			}
		})
	}
}

// =============================================================================
// RequireUser Tests
// =============================================================================

func TestRequireUser(t *testing.T) {
	f := newAuthFixture(t)
	tok, _ := f.token(t, domain.RoleCitizen)
	h := f.mw.WithUser(f.mw.RequireUser(principalEcho()))

	t.Run("anonymous gets 401 json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/notifications", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != domain.EUNAUTHORIZED {
			t.Errorf("expected %q, got %q", domain.EUNAUTHORIZED, code)
		}
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

// =============================================================================
// RequireRole Tests
// =============================================================================

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name    string
		allowed []domain.Role
		caller  domain.Role
		want    int
	}{
		{name: "admin route admits admin", allowed: []domain.Role{domain.RoleAdmin}, caller: domain.RoleAdmin, want: http.StatusOK},
		{name: "admin route refuses officer", allowed: []domain.Role{domain.RoleAdmin}, caller: domain.RoleOfficer, want: http.StatusForbidden},
		{name: "admin route refuses citizen", allowed: []domain.Role{domain.RoleAdmin}, caller: domain.RoleCitizen, want: http.StatusForbidden},
		{name: "staff route admits officer", allowed: []domain.Role{domain.RoleAdmin, domain.RoleOfficer}, caller: domain.RoleOfficer, want: http.StatusOK},
		{name: "staff route refuses citizen", allowed: []domain.Role{domain.RoleAdmin, domain.RoleOfficer}, caller: domain.RoleCitizen, want: http.StatusForbidden},
		{name: "citizen route admits citizen", allowed: []domain.Role{domain.RoleCitizen}, caller: domain.RoleCitizen, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, _ := f.token(t, tt.caller)
			h := Stack(f.mw.WithUser, f.mw.RequireUser, f.mw.RequireRole(tt.allowed...))(principalEcho())

			req := httptest.NewRequest("PUT", "/api/complaints/assign-bulk", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusForbidden {
				if code := errorCode(t, rec); code != domain.EFORBIDDEN {
					t.Errorf("expected %q, got %q", domain.EFORBIDDEN, code)
				}
			}
		})
	}
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	f := newAuthFixture(t)
	rec := httptest.NewRecorder()

	f.mw.RequireRole(domain.RoleAdmin)(principalEcho()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/users/officers", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when chained without RequireUser, got %d", rec.Code)
	}
}

func TestRequireRole_PanicsOnUnknownRole(t *testing.T) {
	f := newAuthFixture(t)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown role")
		}
	}()
	f.mw.RequireRole(domain.Role("MAYOR"))
}

// =============================================================================
// Stack Tests
// =============================================================================

func TestStack_AppliesInOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("outer"), mark("middle"), mark("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "middle", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, order[i], want[i])
		}
	}
}
