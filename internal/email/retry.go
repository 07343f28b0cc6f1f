package email

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/textproto"
	"time"

	"github.com/avast/retry-go"
)

const (
	sendAttempts     = 3
	sendInitialDelay = 500 * time.Millisecond
	sendMaxDelay     = 5 * time.Second
)

// PermanentError marks a failure that retrying cannot fix, such as a
// rejected address or a bad API key.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent mail failure: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// sendWithRetry runs send with exponential backoff while the failure looks
// transient.
func sendWithRetry(ctx context.Context, logger *slog.Logger, subject string, send func() error) error {
	return retry.Do(
		send,
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.Delay(sendInitialDelay),
		retry.MaxDelay(sendMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying email send", "subject", subject, "attempt", n+1, "error", err)
		}),
	)
}

// isTransient treats network failures and 4xx SMTP replies as retryable.
func isTransient(err error) bool {
	if IsPermanent(err) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return true
}
