package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Referenced entity does not resolve
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate)
	ELOCKED       = "locked"       // Status precondition blocks the transition
	EGEOFENCE     = "geofence"     // Actor too far from the reported site
	ETOOLARGE     = "too_large"    // Request entity too large
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	ESTORAGE      = "storage"      // Persistence or attachment write failure
	EINTERNAL     = "internal"     // Internal server error
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "complaint.resolve")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error whose message is formatted from args.
func Errorf(code, op, format string, args ...any) *Error {
	return coded(code, op, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and client-facing message to err.
func Wrap(err error, code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// ErrorCode returns the code of the outermost application error, or EINTERNAL if none.
// A bare ValidationError reports EINVALID.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
// Server faults never leak their cause.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL && e.Code != ESTORAGE {
		return e.Message
	}
	return genericFailureMessage
}

const genericFailureMessage = "An internal error occurred. Please try again later."

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// IsCode reports whether err carries the given application error code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// Convenience constructors for common error types

func coded(code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// NotFound reports that resource id does not resolve.
func NotFound(op, resource, id string) *Error {
	return coded(ENOTFOUND, op, fmt.Sprintf("%s with ID %q not found", resource, id))
}

// Invalid reports bad caller input.
func Invalid(op, message string) *Error { return coded(EINVALID, op, message) }

// Unauthorized reports missing or failed authentication.
func Unauthorized(op, message string) *Error { return coded(EUNAUTHORIZED, op, message) }

// Forbidden reports an authenticated actor lacking permission.
func Forbidden(op, message string) *Error { return coded(EFORBIDDEN, op, message) }

// Conflict reports a uniqueness or concurrent-update clash.
func Conflict(op, message string) *Error { return coded(ECONFLICT, op, message) }

// Locked reports a transition blocked by the complaint's current status.
func Locked(op, message string) *Error { return coded(ELOCKED, op, message) }

// GeofenceError carries the measured distance of a failed geofence check.
type GeofenceError struct {
	DistanceMeters int
	LimitMeters    int
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("%dm from the reported site (limit %dm)", e.DistanceMeters, e.LimitMeters)
}

// Geofence creates a geofence violation error. The distance is reachable
// with errors.As into *GeofenceError.
func Geofence(op string, distanceMeters, limitMeters int) *Error {
	return &Error{
		Code:    EGEOFENCE,
		Op:      op,
		Message: fmt.Sprintf("You are too far from the site (%dm). You must be within %dm to resolve.", distanceMeters, limitMeters),
		Err:     &GeofenceError{DistanceMeters: distanceMeters, LimitMeters: limitMeters},
	}
}

// Storage wraps a persistence or attachment write failure.
func Storage(err error, op, message string) *Error {
	return &Error{Code: ESTORAGE, Op: op, Message: message, Err: err}
}

// Internal wraps a failure the caller cannot act on.
func Internal(err error, op, message string) *Error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// RateLimit reports an exhausted request budget.
func RateLimit(op string) *Error {
	return coded(ERATELIMIT, op, "Too many requests. Please try again later.")
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
