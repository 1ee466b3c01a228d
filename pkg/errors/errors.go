package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Status carries the upstream HTTP status for ErrUpstream errors.
	Status int   `json:"-"`
	Err    error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrTimeout
	ErrNetwork
	ErrUpstream
	ErrMalformed
	ErrValidation
	ErrConfiguration
)

// StatusCode maps the error to an HTTP status for the response layer.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrTimeout:
		return http.StatusRequestTimeout
	case ErrNetwork:
		return http.StatusServiceUnavailable
	case ErrUpstream, ErrMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Timeout(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Message: fmt.Sprintf("%s timed out", operation),
		Err:     err,
	}
}

func Network(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: fmt.Sprintf("%s failed: network error", operation),
		Err:     err,
	}
}

func Upstream(operation string, status int) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("%s failed: upstream returned %d", operation, status),
		Status:  status,
	}
}

func Malformed(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrMalformed,
		Message: fmt.Sprintf("%s returned a malformed response", operation),
		Err:     err,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

func Configuration(message string) *AppError {
	return &AppError{
		Code:    ErrConfiguration,
		Message: message,
	}
}

// Code extracts the ErrorCode from err, or ErrInternal for unknown errors.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool {
	return Code(err) == ErrTimeout
}

// IsRetryable reports whether a failed request may be retried: timeouts,
// network failures and upstream 5xx responses. Client errors and malformed
// payloads are terminal.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrTimeout, ErrNetwork:
		return true
	case ErrUpstream:
		return appErr.Status >= 500
	}
	return false
}
