// Package pgmonkeyerrors provides structured error handling for pgmonkey.
//
// Errors carry a kind so callers can distinguish configuration mistakes
// (fatal, fix the config) from native connection failures (surfaced
// unchanged) and best-effort cleanup noise (logged, never raised).
package pgmonkeyerrors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors: unrecognized
	// connection type, invalid pool bounds, malformed settings.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeInterpolation represents env/secret resolution errors.
	ErrorTypeInterpolation ErrorType = "interpolation"
	// ErrorTypeConnection represents native connection errors.
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeSetting represents session-setting application errors.
	ErrorTypeSetting ErrorType = "setting"
	// ErrorTypeCleanup represents best-effort cleanup errors.
	ErrorTypeCleanup ErrorType = "cleanup"
)

// Error is a structured error with a category and optional cause.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given type and message.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new error with a formatted message.
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a type and message. Returns nil if err
// is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: message, Cause: err}
}

// IsType checks whether err (or anything it wraps) is of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}
