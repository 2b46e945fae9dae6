// Package middleware provides HTTP middleware and response helpers for the API.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/logging"
	"github.com/TomasBirkner/hostly-backend/internal/storage"
)

// Common error codes
const (
	ErrNotFound      = "not_found"
	ErrBadRequest    = "bad_request"
	ErrValidation    = "validation_error"
	ErrSyncFailed    = "sync_failed"
	ErrInternalError = "internal_error"
)

// ErrorResponse is the envelope of every API error.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.WithError(err).Warn("Failed to encode response")
	}
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message, Details: details})
}

// WriteServiceError maps a domain error to its status code and envelope.
func WriteServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *storage.ValidationError
		notFoundErr   *storage.NotFoundError
		feedErr       *calendar.FeedError
	)

	switch {
	case errors.As(err, &validationErr):
		details := map[string]string{}
		if validationErr.Field != "" {
			details["field"] = validationErr.Field
		}
		WriteErrorWithDetails(w, http.StatusBadRequest, ErrValidation, validationErr.Error(), details)
	case errors.As(err, &notFoundErr):
		WriteError(w, http.StatusNotFound, ErrNotFound, notFoundErr.Error())
	case errors.As(err, &feedErr):
		WriteError(w, http.StatusInternalServerError, ErrSyncFailed, feedErr.Error())
	default:
		logging.Logger.WithError(err).Error("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
	}
}

// ErrorRecovery is middleware that recovers from panics and returns a 500 error.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.Logger.WithField("panic", err).Errorf("Panic recovered\n%s", debug.Stack())
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
