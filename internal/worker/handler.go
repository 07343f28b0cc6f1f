package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// JobHandler executes one job type pulled from the queue.
type JobHandler interface {
	// Type must match the job_type column written by the enqueue helpers.
	Type() string

	// Handle runs the job. Return NewPermanentError for failures a retry
	// cannot fix, such as a malformed payload or a rejected recipient.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a job failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the worker fails the job immediately.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// DecodePayload unmarshals a job payload. A payload that does not decode
// will never decode, so the error is permanent.
func DecodePayload[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	return v, nil
}
