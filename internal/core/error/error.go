package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// UpstreamErrorMessage describes failures of external collaborators (LLM, geocoder, chart engine).
	UpstreamErrorMessage = "upstream service failed"
	// ValidationErrorMessage describes rejected input.
	ValidationErrorMessage = "invalid request"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
	// Service names the upstream collaborator for upstream failures.
	Service string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Service != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Service)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapUpstream marks err as a failure of the named external service.
// An upstream 4xx keeps its status so callers can tell rejected input from outages.
func WrapUpstream(service string, status int, err error) error {
	if err == nil {
		return nil
	}
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	return &AppError{
		Err:     err,
		Status:  status,
		Message: UpstreamErrorMessage,
		Service: service,
	}
}

// Validation marks err as rejected input.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusUnprocessableEntity, ValidationErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when it carries none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to show to API callers.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		if appErr.Status == http.StatusUnprocessableEntity && appErr.Err != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
		}
		return appErr.Message
	}
	return SystemErrorMessage
}

// IsClientError reports whether err carries a 4xx status.
func IsClientError(err error) bool {
	status := StatusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
