package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/complaints", "/api/complaints"},
		{"/api/complaints/6ba7b810-9dad-11d1-80b4-00c04fd430c8/reopen", "/api/complaints/{id}/reopen"},
		{"/api/complaints/6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "/api/complaints/{id}"},
		{"/api/categories/12", "/api/categories/{id}"},
		{"/api/categories/12/", "/api/categories/{id}/"},
		{"/api/v2/x", "/api/v2/x"},
		{"/api/notifications/1/2", "/api/notifications/{id}/{id}"},
		{"/uploads/attachments/2024/03/6ba7b810-9dad-11d1-80b4-00c04fd430c8-pothole.jpg", "/uploads/*"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMiddleware_RecordsNormalizedRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	counter := HTTPRequestsTotal.WithLabelValues("POST", "/api/complaints/{id}/reopen", "409")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6ba7b811-9dad-11d1-80b4-00c04fd430c8"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/complaints/"+id+"/reopen", nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPRequestsInFlight))
}

func TestMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/metrics", "200")
	before := testutil.ToFloat64(counter)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, before, testutil.ToFloat64(counter))
}
