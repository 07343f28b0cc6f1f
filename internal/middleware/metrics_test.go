package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicpulse/civicpulse/internal/domain"
)

// =============================================================================
// Metrics Auth Middleware Tests
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMetricsAuthMiddleware_AllowsValidCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prom", "scrape-secret", discardLogger())

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("civicpulse_complaints 3"))
	}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("prom", "scrape-secret")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "civicpulse_complaints 3" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestMetricsAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		setAuth  bool
		username string
		password string
	}{
		{name: "no credentials"},
		{name: "wrong username", setAuth: true, username: "grafana", password: "scrape-secret"},
		{name: "wrong password", setAuth: true, username: "prom", password: "guess"},
		{name: "empty credentials", setAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMetricsAuthMiddleware("prom", "scrape-secret", discardLogger())
			called := false
			h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest("GET", "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.username, tt.password)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
			if called {
				t.Error("handler should not run without valid credentials")
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != metricsRealm {
				t.Errorf("unexpected WWW-Authenticate header: %q", got)
			}
			if code := errorCode(t, rec); code != domain.EUNAUTHORIZED {
				t.Errorf("expected error code %q, got %q", domain.EUNAUTHORIZED, code)
			}
		})
	}
}

func TestMetricsAuthMiddleware_DisabledWithoutCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "", discardLogger())

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected open endpoint when auth is not configured, got %d", rec.Code)
	}
}

func TestMetricsAuthMiddleware_PasswordOnlyStillEnforced(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "only-password", discardLogger())

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("", "only-password")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with matching password, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
}
