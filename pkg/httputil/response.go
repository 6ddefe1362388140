package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/logger"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/validator"
)

// Response is the JSON envelope returned by every endpoint. Status is true on
// success, in which case Data is set; failures carry Message and Code.
type Response struct {
	Status    bool              `json:"status"`
	Data      any               `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a success envelope around data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Status: true, Data: data})
}

// WriteFailure writes a failure envelope with an explicit status, code and message.
func WriteFailure(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, Response{
		Status:    false,
		Message:   message,
		Code:      code,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

// WriteError renders err as a failure envelope. AppError values keep their
// own status, code and message; anything else becomes a generic 500. Server
// errors are logged with full detail, which never reaches the client. The
// request-scoped logger is preferred over fallback when one is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		code, message = appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code, message = "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = "UNAUTHORIZED", "unauthorized"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("code", code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteFailure(w, r, status, code, message)
}

// WriteValidationError writes a 400 with per-field messages when err is a
// validator.ValidationError, or a plain INVALID_INPUT otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Message:   "request validation failed",
			Code:      "VALIDATION_ERROR",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Message:   "invalid request body",
		Code:      "INVALID_INPUT",
		RequestID: requestID,
	})
}
