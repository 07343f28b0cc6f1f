package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civicpulse/civicpulse/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveError(err error) *httptest.ResponseRecorder {
	req := httptest.NewRequest("PUT", "/api/complaints/1/resolve", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)
	return rec
}

// =============================================================================
// Status Mapping
// =============================================================================

func TestErrorResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid", domain.Invalid("op", "Materials are required"), http.StatusBadRequest},
		{"unauthorized", domain.Unauthorized("op", "Invalid email or password"), http.StatusUnauthorized},
		{"forbidden", domain.Forbidden("op", "Account is awaiting administrator approval"), http.StatusForbidden},
		{"not found", domain.NotFound("op", "Complaint", "x"), http.StatusNotFound},
		{"conflict", domain.Conflict("op", "Officer is already approved!"), http.StatusConflict},
		{"too large", domain.ValidateAttachmentSize("op", domain.MaxAttachmentSize+1), http.StatusRequestEntityTooLarge},
		{"geofence", domain.Geofence("op", 201, 200), http.StatusUnprocessableEntity},
		{"locked", domain.Locked("op", "Admin must re-assign this ticket"), http.StatusLocked},
		{"rate limit", domain.RateLimit("op"), http.StatusTooManyRequests},
		{"storage", domain.Storage(io.ErrUnexpectedEOF, "op", "Failed to store proof"), http.StatusInternalServerError},
		{"internal", domain.Internal(io.EOF, "op", "boom"), http.StatusInternalServerError},
		{"bare error", io.EOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveError(tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

func TestErrorResponse_GeofenceCarriesDistance(t *testing.T) {
	rec := serveError(domain.Geofence("complaint.resolve", 201, 200))

	var body JSONError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != domain.EGEOFENCE {
		t.Errorf("code = %q, want %q", body.Error.Code, domain.EGEOFENCE)
	}
	if body.Error.DistanceMeters == nil || *body.Error.DistanceMeters != 201 {
		t.Errorf("distance_meters = %v, want 201", body.Error.DistanceMeters)
	}
	if body.Error.LimitMeters == nil || *body.Error.LimitMeters != 200 {
		t.Errorf("limit_meters = %v, want 200", body.Error.LimitMeters)
	}
}

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("ComplaintService.File", "title", "Title is required")

	rec := serveError(ve)
	body := rec.Body.String()

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if strings.Contains(body, "ComplaintService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, "title") {
		t.Errorf("response should contain field name: %s", body)
	}
	if !strings.Contains(body, "Title is required") {
		t.Errorf("response should contain field message: %s", body)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	sensitiveErr := &mockDatabaseError{message: "connection to 192.168.1.100:5432 refused"}
	internalErr := domain.Internal(sensitiveErr, "DB.Connect", "Failed to connect")

	body := serveError(internalErr).Body.String()

	if strings.Contains(body, "192.168") {
		t.Errorf("response exposes IP address: %s", body)
	}
	if strings.Contains(body, "DB.Connect") {
		t.Errorf("response exposes internal operation: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic error, got: %s", body)
	}
}

func TestErrorResponse_StorageErrorHidesDetails(t *testing.T) {
	storageErr := domain.Storage(&mockDatabaseError{message: "s3: AccessDenied on bucket civic-proofs"}, "complaint.resolve", "Failed to store proof")

	body := serveError(storageErr).Body.String()

	if strings.Contains(body, "AccessDenied") || strings.Contains(body, "civic-proofs") {
		t.Errorf("response exposes storage details: %s", body)
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	rawErr := &mockDatabaseError{message: "FATAL: password authentication failed for user \"postgres\""}

	body := serveError(rawErr).Body.String()

	if strings.Contains(body, "FATAL") || strings.Contains(body, "postgres") {
		t.Errorf("response exposes raw error: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic message, got: %s", body)
	}
}

// mockDatabaseError simulates a database error for testing
type mockDatabaseError struct {
	message string
}

func (e *mockDatabaseError) Error() string {
	return e.message
}
