package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/email"
	"github.com/civicpulse/civicpulse/internal/metrics"
)

const (
	// CodeLength is the number of digits in a code.
	CodeLength = 6

	// DefaultTTL is how long a code stays valid.
	DefaultTTL = 5 * time.Minute

	// VerifiedTTL is how long a verified email may be used for signup or
	// password reset.
	VerifiedTTL = 30 * time.Minute
)

// Sender delivers a code to its owner.
type Sender interface {
	SendCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// Service generates and checks one-time codes.
type Service struct {
	store  Store
	sender Sender
	ttl    time.Duration
	logger *slog.Logger
}

// NewService creates a Service. A non-positive ttl falls back to DefaultTTL.
func NewService(store Store, sender Sender, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, sender: sender, ttl: ttl, logger: logger}
}

// Generate issues a fresh code for addr, replacing any pending one and
// resetting its verified state.
func (s *Service) Generate(ctx context.Context, addr string) error {
	const op = "otp.generate"

	addr = normalizeEmail(addr)
	if addr == "" {
		return domain.Invalid(op, "Email is required")
	}

	code, err := newCode()
	if err != nil {
		return domain.Internal(err, op, "Failed to generate code")
	}
	if err := s.store.SaveCode(ctx, addr, code, s.ttl); err != nil {
		return domain.Internal(err, op, "Failed to store code")
	}
	if err := s.sender.SendCode(ctx, addr, code, s.ttl); err != nil {
		return domain.Internal(err, op, "Failed to send code")
	}

	metrics.OTPIssued.Inc()
	s.logger.Info("otp issued", "email", addr)
	return nil
}

// Verify consumes the code and marks addr verified.
// Returns domain.EINVALID for a wrong or expired code.
func (s *Service) Verify(ctx context.Context, addr, code string) error {
	const op = "otp.verify"

	addr = normalizeEmail(addr)
	ok, err := s.store.TakeCode(ctx, addr, code)
	if err != nil {
		return domain.Internal(err, op, "Failed to check code")
	}
	if !ok {
		metrics.OTPVerifications.WithLabelValues("rejected").Inc()
		return domain.Invalid(op, "Invalid or Expired OTP")
	}
	if err := s.store.MarkVerified(ctx, addr, VerifiedTTL); err != nil {
		return domain.Internal(err, op, "Failed to record verification")
	}

	metrics.OTPVerifications.WithLabelValues("accepted").Inc()
	return nil
}

// IsVerified reports whether addr passed Verify and has not been cleared.
func (s *Service) IsVerified(ctx context.Context, addr string) (bool, error) {
	ok, err := s.store.IsVerified(ctx, normalizeEmail(addr))
	if err != nil {
		return false, domain.Internal(err, "otp.is_verified", "Failed to check verification")
	}
	return ok, nil
}

// Clear removes the verified state so it cannot be reused.
func (s *Service) Clear(ctx context.Context, addr string) error {
	if err := s.store.ClearVerified(ctx, normalizeEmail(addr)); err != nil {
		return domain.Internal(err, "otp.clear", "Failed to clear verification")
	}
	return nil
}

// Purge drops expired entries from stores that do not expire them natively.
func (s *Service) Purge(ctx context.Context) (int, error) {
	return s.store.PurgeExpired(ctx)
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// =============================================================================
// Senders
// =============================================================================

// LogSender writes codes to the log. Development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendCode(_ context.Context, to, code string, _ time.Duration) error {
	s.Logger.Warn("development otp", "email", to, "code", code)
	return nil
}

// MailSender mails codes through the email service.
type MailSender struct {
	Email email.EmailService
}

func (s MailSender) SendCode(ctx context.Context, to, code string, ttl time.Duration) error {
	return s.Email.Send(ctx, to, "CivicPulse Verification Code", email.TemplateOTP, map[string]string{
		"Code":      code,
		"ExpiresIn": ttl.String(),
	})
}
