package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/handler"
)

const metricsRealm = `Basic realm="civicpulse-metrics"`

// MetricsAuthMiddleware guards the Prometheus scrape endpoint with HTTP basic
// auth. Only digests of the configured credentials are kept.
type MetricsAuthMiddleware struct {
	credentials [sha256.Size]byte
	enabled     bool
	logger      *slog.Logger
}

// NewMetricsAuthMiddleware creates the scrape guard. Leaving both username and
// password empty disables it.
func NewMetricsAuthMiddleware(username, password string, logger *slog.Logger) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		credentials: credentialDigest(username, password),
		enabled:     username != "" || password != "",
		logger:      logger,
	}
}

// Handler wraps next with the credential check.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	if !m.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); ok {
			got := credentialDigest(user, pass)
			if subtle.ConstantTimeCompare(got[:], m.credentials[:]) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Warn("metrics scrape rejected", "ip", getClientIP(r), "user", user)
		}

		w.Header().Set("WWW-Authenticate", metricsRealm)
		handler.ErrorResponse(w, r, m.logger, domain.Unauthorized("metrics.scrape", "Scrape credentials required"))
	})
}

// credentialDigest hashes the pair so comparison time does not depend on
// either value's length.
func credentialDigest(username, password string) [sha256.Size]byte {
	return sha256.Sum256([]byte(username + "\x00" + password))
}
