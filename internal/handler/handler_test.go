package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
	"github.com/civicpulse/civicpulse/internal/repository/repotest"
	"github.com/civicpulse/civicpulse/internal/service"
	"github.com/civicpulse/civicpulse/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Router
// =============================================================================

// testRequireUser rejects requests without a principal in context.
func testRequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetPrincipalFromRequest(r) == nil {
			UnauthorizedResponse(w, r, discardLogger())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// testAllow mirrors the role gate: the principal's role must be listed.
func testAllow(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.GetPrincipalFromRequest(r)
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			ForbiddenResponse(w, r, discardLogger())
		})
	}
}

type apiFixture struct {
	store   *repotest.MemStore
	mux     *http.ServeMux
	citizen *auth.Principal
	other   *auth.Principal
	officer *auth.Principal
	admin   *auth.Principal
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := repotest.NewMemStore()
	store.AddCategory(1, "Roads")
	logger := discardLogger()

	principalFor := func(u repository.User) *auth.Principal {
		return &auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: domain.Role(u.Role)}
	}

	f := &apiFixture{
		store:   store,
		mux:     http.NewServeMux(),
		citizen: principalFor(store.AddUser(repository.User{Name: "Asha", Email: "asha@example.com", Role: "CITIZEN", Enabled: true})),
		other:   principalFor(store.AddUser(repository.User{Name: "Kiran", Email: "kiran@example.com", Role: "CITIZEN", Enabled: true})),
		officer: principalFor(store.AddUser(repository.User{Name: "Ravi", Email: "ravi@example.com", Role: "OFFICER", Enabled: true})),
		admin:   principalFor(store.AddUser(repository.User{Name: "Meera", Email: "meera@example.com", Role: "ADMIN", Enabled: true})),
	}

	files, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/uploads"}, logger)
	require.NoError(t, err)
	attachments := service.NewAttachmentStore(files, nil, time.Minute, logger)

	complaints := service.NewComplaintService(
		store,
		service.NewAuditLog(store, logger),
		service.NewNotifier(store, logger),
		service.NewOfficerMetrics(logger),
		attachments,
		domain.DefaultGeofenceRadiusMeters,
		logger,
	)
	NewComplaintHandler(complaints, service.NewCategoryService(store, logger), attachments, logger).
		RegisterRoutes(f.mux, testRequireUser, testAllow)
	NewUserHandler(service.NewUserService(store, "https://civicpulse.example", logger), logger).
		RegisterRoutes(f.mux, testRequireUser, testAllow)
	return f
}

func (f *apiFixture) do(t *testing.T, p *auth.Principal, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p != nil {
		req = req.WithContext(auth.SetPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) doJSON(t *testing.T, p *auth.Principal, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return f.do(t, p, method, path, body, "application/json")
}

func (f *apiFixture) doForm(t *testing.T, p *auth.Principal, method, path string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return f.do(t, p, method, path, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// fileComplaint files a complaint at a Bengaluru street corner.
func (f *apiFixture) fileComplaint(t *testing.T) ComplaintResponse {
	t.Helper()
	rec := f.doForm(t, f.citizen, "POST", "/api/complaints", map[string]string{
		"title":       "Pothole on 5th Main",
		"description": "Deep pothole near the bus stop",
		"category_id": "1",
		"location":    "5th Main, Indiranagar",
		"latitude":    "12.9716",
		"longitude":   "77.5946",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ComplaintResponse](t, rec)
}

func (f *apiFixture) assign(t *testing.T, id uuid.UUID) {
	t.Helper()
	rec := f.doJSON(t, f.admin, "PUT", "/api/complaints/assign-bulk", bulkAssignRequest{
		ComplaintIDs: []uuid.UUID{id},
		OfficerID:    f.officer.UserID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

