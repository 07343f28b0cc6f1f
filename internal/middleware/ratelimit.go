package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/handler"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter counts attempts per key in fixed windows. A key's window opens
// on its first attempt and lasts for window.
type RateLimiter struct {
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*attemptWindow
	stop    chan struct{}
	once    sync.Once
}

type attemptWindow struct {
	attempts int
	opened   time.Time
}

func (w *attemptWindow) expired(now time.Time, length time.Duration) bool {
	return now.Sub(w.opened) > length
}

// NewRateLimiter creates a limiter allowing limit attempts per window and
// starts a sweeper that drops expired keys until Close is called.
func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
		windows: make(map[string]*attemptWindow),
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow counts an attempt for key and reports whether it fits the budget.
// Rejected attempts are not counted.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.record(key, true)
}

// RecordFailure counts an attempt for key even when the budget is spent, so
// failed logins keep the client locked out.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.record(key, false)
}

func (rl *RateLimiter) record(key string, enforce bool) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || w.expired(now, rl.window) {
		rl.windows[key] = &attemptWindow{attempts: 1, opened: now}
		return true
	}
	if enforce && w.attempts >= rl.limit {
		return false
	}
	w.attempts++
	return true
}

// Reset forgets key, e.g. after a successful login.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	delete(rl.windows, key)
	rl.mu.Unlock()
}

// TimeUntilReset returns how long until key's window closes, or 0 when it
// has no open window.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		return 0
	}
	if left := rl.window - rl.now().Sub(w.opened); left > 0 {
		return left
	}
	return 0
}

// Close stops the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.expire()
		}
	}
}

func (rl *RateLimiter) expire() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	dropped := 0
	for key, w := range rl.windows {
		if w.expired(now, rl.window) {
			delete(rl.windows, key)
			dropped++
		}
	}
	if dropped > 0 {
		rl.logger.Debug("rate limiter swept expired keys", "dropped", dropped, "remaining", len(rl.windows))
	}
	return dropped
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware wraps a rate limiter for use as HTTP middleware.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
func NewRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)

		if !m.limiter.Allow(clientIP) {
			m.logger.Warn("rate limit exceeded",
				"ip", clientIP,
				"path", r.URL.Path,
				"method", r.Method,
			)

			retryAfter := int(m.limiter.TimeUntilReset(clientIP).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			handler.ErrorResponse(w, r, m.logger, domain.RateLimit(r.Method+" "+r.URL.Path))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Auth Rate Limiter (combined limiter for auth endpoints)
// =============================================================================

// AuthRateLimiter provides rate limiting for authentication endpoints
// with different limits for different actions.
type AuthRateLimiter struct {
	loginLimiter  *RateLimiter
	signupLimiter *RateLimiter
	codeLimiter   *RateLimiter
	logger        *slog.Logger
}

// NewAuthRateLimiter creates rate limiters for auth endpoints with sensible defaults.
// - Login: 5 attempts per 15 minutes
// - Signup: 3 attempts per hour
// - Verification codes (send, verify and reset): 10 attempts per 15 minutes
func NewAuthRateLimiter(logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		loginLimiter:  NewRateLimiter(5, 15*time.Minute, logger),
		signupLimiter: NewRateLimiter(3, time.Hour, logger),
		codeLimiter:   NewRateLimiter(10, 15*time.Minute, logger),
		logger:        logger,
	}
}

// LimitLogin returns middleware for rate limiting login attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	mw := NewRateLimitMiddleware(a.loginLimiter, a.logger)
	return mw.Limit(next)
}

// LimitSignup returns middleware for rate limiting account creation.
func (a *AuthRateLimiter) LimitSignup(next http.Handler) http.Handler {
	mw := NewRateLimitMiddleware(a.signupLimiter, a.logger)
	return mw.Limit(next)
}

// LimitCodes returns middleware for rate limiting one-time code requests,
// code verification and password resets. A six digit code must not be
// guessable by brute force within its lifetime.
func (a *AuthRateLimiter) LimitCodes(next http.Handler) http.Handler {
	mw := NewRateLimitMiddleware(a.codeLimiter, a.logger)
	return mw.Limit(next)
}

// RecordFailedLogin records a failed login attempt from the request's client.
// Call this when login fails to make failed attempts count against the limit.
func (a *AuthRateLimiter) RecordFailedLogin(r *http.Request) {
	a.loginLimiter.RecordFailure(getClientIP(r))
}

// ResetLogin clears the login limit for the request's client after a
// successful login.
func (a *AuthRateLimiter) ResetLogin(r *http.Request) {
	a.loginLimiter.Reset(getClientIP(r))
}

// Close stops the sweepers of every auth limiter.
func (a *AuthRateLimiter) Close() {
	a.loginLimiter.Close()
	a.signupLimiter.Close()
	a.codeLimiter.Close()
}

var _ handler.LoginLimiter = (*AuthRateLimiter)(nil)

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (most common proxy header)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs: client, proxy1, proxy2
		// The first one is the original client
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	// Check X-Real-IP (nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}

	return ip
}
