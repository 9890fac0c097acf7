// Package httputil holds the JSON envelope every endpoint answers with and
// the helpers that turn service errors into it.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/logger"
	"github.com/utafrali/rxstore/pkg/validator"
)

// Response is the envelope: exactly one of Data or Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// since the header has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError renders err. AppErrors keep their code, message and details;
// validation errors list their fields; anything else becomes a generic 500
// which is logged with the request-scoped logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logServerError(r, err, fallback)
		}
		WriteJSON(w, appErr.Status, Response{Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", "an internal error occurred"
	switch status {
	case http.StatusNotFound:
		code, message = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		code, message = "CONFLICT", "resource state conflict"
	case http.StatusBadRequest:
		code, message = "INVALID_INPUT", err.Error()
	case http.StatusServiceUnavailable:
		code, message = "SERVICE_UNAVAILABLE", "service temporarily unavailable, try again"
	}
	if status >= http.StatusInternalServerError {
		logServerError(r, err, fallback)
	}
	WriteJSON(w, status, Response{Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID}})
}

func logServerError(r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteBadRequest answers 400 with a single message, for malformed bodies
// and query strings.
func WriteBadRequest(w http.ResponseWriter, code, message string) {
	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{Code: code, Message: message}})
}

// ParseUUID parses a path parameter, answering 400 on failure. The bool is
// false when the caller must return.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteBadRequest(w, "INVALID_PARAMETER", "invalid UUID: "+param)
		return uuid.Nil, false
	}
	return id, true
}
