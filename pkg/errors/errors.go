// Package errors defines the failure taxonomy shared across the service:
// sentinel errors for each failure kind, an AppError wrapper carrying a
// caller-facing message, and the mapping onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks a required field that is missing or empty.
	// The operation is not attempted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an absent chat id or document. Query misses are
	// normal empty results; this sentinel is for hard misses only.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity marks a persisted snapshot that fails to parse or
	// violates a structural invariant on load.
	ErrIntegrity = errors.New("snapshot integrity violation")
	// ErrBackendUnavailable marks a dependency that cannot be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrTimeout marks an externally bounded call that exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrInternal is the catch-all for unexpected failures.
	ErrInternal = errors.New("internal error")
)

// AppError pairs a sentinel with a human-readable message and the HTTP
// status the transport layer should render.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel into an AppError.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with a formatted message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Validation builds a 400 AppError for a missing or empty input field.
func Validation(message string) *AppError {
	return New(ErrValidation, http.StatusBadRequest, message)
}

// HTTPStatusCode maps any error to the status code the handler should write.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
