package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across the service. AppError values wrap one of these
// so callers can branch with errors.Is regardless of the message.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("rate limited")
	ErrProvider           = errors.New("identity provider failure")
	ErrInternal           = errors.New("internal error")
)

// AppError is an error that knows how it should be rendered to an HTTP client.
// Message is always safe to show; Err carries the detail that is only logged.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for a resource looked up by id.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// NotFoundMessage creates a 404 error with a caller-chosen message.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error for input rejected by a local check such as
// the password hasher's length limit. The cause's text becomes the message.
func Validation(cause error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: cause.Error(),
		Status:  http.StatusBadRequest,
		Err:     errors.Join(ErrValidation, cause),
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// InvalidCredentials creates a 401 error for a failed password check.
func InvalidCredentials(message string) *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// ProviderError creates a 500 error for a failed identity provider round trip.
// The client only ever sees the generic message.
func ProviderError(provider string, cause error) *AppError {
	return &AppError{
		Code:    "PROVIDER_ERROR",
		Message: "sign-in with the identity provider failed",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %s: %w", ErrProvider, provider, cause),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
