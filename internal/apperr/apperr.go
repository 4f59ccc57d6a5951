// Package apperr provides the typed error taxonomy shared by the projection
// engine, the store, and the CLI.
//
// Callers branch on Kind, never on message text:
//   - KindValidation: malformed submission, surfaced directly, never retried
//   - KindTransientFetch: loading events/bundles/records failed; cached as a
//     failure marker and shown as "data unavailable"
//   - KindDuplicate: a retried submission; callers treat it as success
//   - KindGateViolation: close-order attempted below threshold; Details
//     carries the numeric shortfall
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindTransientFetch
	KindDuplicate
	KindGateViolation
	KindNotFound
	KindConflict
	KindInternal
)

// String returns the stable code used in CLI and log output.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindTransientFetch:
		return "TRANSIENT_FETCH"
	case KindDuplicate:
		return "DUPLICATE_SUBMISSION"
	case KindGateViolation:
		return "GATE_VIOLATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is a domain error with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // operation that failed (optional)
	Err     error  // underlying error (optional)
	Details any    // additional structured context (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches structured details and returns the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// TransientFetch wraps a failure to load upstream data.
func TransientFetch(message string, err error) *Error {
	return Wrap(KindTransientFetch, message, err)
}

// NotFound creates a not found error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// Internal creates an error for a broken invariant.
func Internal(format string, args ...any) *Error {
	return New(KindInternal, fmt.Sprintf(format, args...))
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return GetKind(err) == KindValidation }

// IsTransientFetch reports whether err is a transient fetch error.
func IsTransientFetch(err error) bool { return GetKind(err) == KindTransientFetch }

// IsDuplicate reports whether err marks a duplicate submission.
func IsDuplicate(err error) bool { return GetKind(err) == KindDuplicate }

// IsGateViolation reports whether err is a close-gate violation.
func IsGateViolation(err error) bool { return GetKind(err) == KindGateViolation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return GetKind(err) == KindNotFound }

// DetailsOf returns the Details of the first *Error in the chain.
func DetailsOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
