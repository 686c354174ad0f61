// Package errors provides the error taxonomy of the interaction sync engine.
//
// Usage:
//
//	// In the engine - return typed errors
//	if !domain.Kind(kind).Toggleable() {
//	    return errors.Validationf("%s cannot be toggled", kind)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrUnauthorized) {
//	    promptReauth()
//	}
//
//	// Or read the code for switch statements
//	switch errors.CodeOf(err) {
//	case errors.CodeNetwork, errors.CodeRemote, errors.CodeTimeout:
//	    showRetryNotice()
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is the machine-readable error kind surfaced to callers.
type Code string

// Error codes used throughout the engine.
const (
	CodeValidation   Code = "VALIDATION"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNetwork      Code = "NETWORK"
	CodeRemote       Code = "REMOTE"
	CodeTimeout      Code = "TIMEOUT"
	CodePersistence  Code = "PERSISTENCE"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code used when the error crosses the local API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNetwork, CodeRemote:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether re-issuing the same action may succeed.
func (c Code) Retryable() bool {
	switch c {
	case CodeNetwork, CodeRemote, CodeTimeout:
		return true
	default:
		return false
	}
}

// Error is a typed error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "no active session"}
	ErrNetwork      = &Error{Code: CodeNetwork, Message: "backend unreachable"}
	ErrRemote       = &Error{Code: CodeRemote, Message: "backend rejected the request"}
	ErrTimeout      = &Error{Code: CodeTimeout, Message: "backend did not answer in time"}
	ErrPersistence  = &Error{Code: CodePersistence, Message: "local store write failed"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code carried by err.
// Context deadlines map to CodeTimeout; anything untyped is CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}

// UserVisible reports whether the error should be shown to the user.
// Persistence failures are recovered locally and never surfaced.
func UserVisible(err error) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) != CodePersistence
}

// Constructor functions for creating errors with custom messages.

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Network wraps a transport failure.
func Network(err error) *Error {
	return &Error{Code: CodeNetwork, Message: "backend unreachable", cause: err}
}

// Remote creates a remote rejection error.
func Remote(msg string) *Error {
	return &Error{Code: CodeRemote, Message: msg}
}

// Remotef creates a remote rejection error with formatted message.
func Remotef(format string, args ...any) *Error {
	return &Error{Code: CodeRemote, Message: fmt.Sprintf(format, args...)}
}

// Timeout wraps a bounded-wait expiry.
func Timeout(err error) *Error {
	return &Error{Code: CodeTimeout, Message: "backend did not answer in time", cause: err}
}

// Persistence wraps a local store failure.
func Persistence(err error) *Error {
	return &Error{Code: CodePersistence, Message: "local store write failed", cause: err}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
