package storage

import (
	"errors"
	"fmt"

	"github.com/civicpulse/civicpulse/internal/domain"
)

var (
	// ErrNotFound is returned when no attachment exists at a key.
	ErrNotFound = errors.New("attachment not found")

	// ErrKeyExists is returned when a key is taken and overwrite is disabled.
	ErrKeyExists = errors.New("attachment already exists at this key")

	// ErrInvalidKey is returned for empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("invalid attachment key")

	// ErrTooLarge is returned when an upload exceeds PutOptions.MaxSize.
	ErrTooLarge = errors.New("attachment exceeds maximum size")

	// ErrAccessDenied is returned when the bucket rejects our credentials.
	ErrAccessDenied = errors.New("access denied")
)

// StorageError records which backend call failed for which key.
type StorageError struct {
	Op  string // "Put", "Get", "Delete" or "URL"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an attachment was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTooLarge returns true if the error indicates an upload was too large.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}

// IsInvalidKey returns true if the error indicates an invalid attachment key.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

// DomainError translates a backend failure into the application error the
// lifecycle operations report. Anything not caused by the caller's input
// becomes domain.ESTORAGE with message as the client-facing text.
func DomainError(err error, op, message string) error {
	switch {
	case err == nil:
		return nil
	case IsTooLarge(err):
		return domain.Errorf(domain.ETOOLARGE, op, "Attachment exceeds maximum size")
	case IsInvalidKey(err):
		return domain.Invalid(op, "Invalid attachment reference")
	case IsNotFound(err):
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: "Attachment not found", Err: err}
	default:
		return domain.Storage(err, op, message)
	}
}
