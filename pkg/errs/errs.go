// Package errs defines the error taxonomy shared by the store, the
// authorization engine, and the HTTP layer. Every caller-facing failure is
// one of a small closed set of kinds; anything else is an internal error.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a caller-facing failure.
type Kind int

const (
	// Unauthenticated means the credential is missing or invalid.
	Unauthenticated Kind = iota + 1
	// Forbidden means the caller is authenticated but not permitted.
	Forbidden
	// NotFound means the referenced entity does not exist.
	NotFound
	// Conflict means a uniqueness constraint was violated.
	Conflict
	// InvalidInput means a field or tag is malformed or out of range.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a kinded error with an operator-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error with a message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or 0 if err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// MessageOf returns the caller-facing message of err, or a generic fallback.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a not_found error.
func IsNotFound(err error) bool { return IsKind(err, NotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return IsKind(err, Conflict) }

// IsForbidden reports whether err is a forbidden error.
func IsForbidden(err error) bool { return IsKind(err, Forbidden) }
