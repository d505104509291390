package syncd

import (
	"fmt"
	"net/http"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable error code shared by both transports.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidKey   ErrorCode = "INVALID_KEY"
	ErrCodeKeyRevoked   ErrorCode = "KEY_REVOKED"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
)

// HTTPStatus maps a code to its request-path status, per spec §7.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeInvalidKey, ErrCodeKeyRevoked:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed, transport-agnostic failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "syncd error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("syncd error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError extracts a typed error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	typed, ok := AsError(err)
	return ok && typed.Code == code
}

// CodeOf returns the error's code, defaulting to INTERNAL_ERROR for
// untyped errors so callers always have something to log and map.
func CodeOf(err error) ErrorCode {
	if typed, ok := AsError(err); ok {
		return typed.Code
	}
	return ErrCodeInternal
}
