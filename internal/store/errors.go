package store

import (
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)

	base *Error // sentinel this error was derived from
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel e was derived from,
// so ErrConflict.WithMessage(...) still matches ErrConflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.root() == t.root()
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}
	return e
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
		base:    e.root(),
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		base:    e.root(),
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrConflict means a concurrent transaction touched the same records.
	// It is surfaced to the caller and never retried by the store.
	ErrConflict = &Error{
		Code:    http.StatusConflict,
		Message: "write conflict",
	}
)

// Record-specific not-found errors. Each unwraps to ErrNotFound.
var (
	ErrSessionNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "reading session not found",
		Err:     ErrNotFound,
	}

	ErrProgressNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "reading progress not found",
		Err:     ErrNotFound,
	}

	ErrBookNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "book not found",
		Err:     ErrNotFound,
	}
)
