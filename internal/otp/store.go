// Package otp issues one-time email verification codes.
//
// A code is single use: a successful Verify deletes it and marks the email
// verified, which gates signup and password reset. Both codes and verified
// flags expire on their own.
package otp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps codes and verified flags keyed by email.
type Store interface {
	// SaveCode replaces any pending code for email and clears its verified flag.
	SaveCode(ctx context.Context, email, code string, ttl time.Duration) error

	// TakeCode deletes and reports true only if code matches the pending,
	// unexpired code. A wrong code leaves the pending code in place.
	TakeCode(ctx context.Context, email, code string) (bool, error)

	MarkVerified(ctx context.Context, email string, ttl time.Duration) error
	IsVerified(ctx context.Context, email string) (bool, error)
	ClearVerified(ctx context.Context, email string) error

	// PurgeExpired drops expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// Memory store
// =============================================================================

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	codes    map[string]entry
	verified map[string]entry
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:    make(map[string]entry),
		verified: make(map[string]entry),
		now:      time.Now,
	}
}

func (s *MemoryStore) SaveCode(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	s.codes[email] = entry{value: code, expiresAt: s.now().Add(ttl)}
	delete(s.verified, email)
	return nil
}

func (s *MemoryStore) TakeCode(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	e, ok := s.codes[email]
	if !ok || !s.now().Before(e.expiresAt) || e.value != code {
		return false, nil
	}
	delete(s.codes, email)
	return true, nil
}

func (s *MemoryStore) MarkVerified(_ context.Context, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[normalizeEmail(email)] = entry{expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) IsVerified(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.verified[normalizeEmail(email)]
	return ok && s.now().Before(e.expiresAt), nil
}

func (s *MemoryStore) ClearVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verified, normalizeEmail(email))
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for _, m := range []map[string]entry{s.codes, s.verified} {
		for k, e := range m {
			if !now.Before(e.expiresAt) {
				delete(m, k)
				removed++
			}
		}
	}
	return removed, nil
}

// =============================================================================
// Redis store
// =============================================================================

const (
	codeKeyPrefix     = "civicpulse:otp:code:"
	verifiedKeyPrefix = "civicpulse:otp:verified:"
)

// takeCodeScript deletes the code only when it matches, so a wrong guess
// cannot burn a valid code.
var takeCodeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps codes in Redis with native key expiry, so codes survive
// restarts and are shared across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	email = normalizeEmail(email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKeyPrefix+email, code, ttl)
		pipe.Del(ctx, verifiedKeyPrefix+email)
		return nil
	})
	return err
}

func (s *RedisStore) TakeCode(ctx context.Context, email, code string) (bool, error) {
	n, err := takeCodeScript.Run(ctx, s.client, []string{codeKeyPrefix + normalizeEmail(email)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) MarkVerified(ctx context.Context, email string, ttl time.Duration) error {
	return s.client.Set(ctx, verifiedKeyPrefix+normalizeEmail(email), "1", ttl).Err()
}

func (s *RedisStore) IsVerified(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, verifiedKeyPrefix+normalizeEmail(email)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) ClearVerified(ctx context.Context, email string) error {
	return s.client.Del(ctx, verifiedKeyPrefix+normalizeEmail(email)).Err()
}

// PurgeExpired is a no-op; Redis expires keys itself.
func (s *RedisStore) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}
