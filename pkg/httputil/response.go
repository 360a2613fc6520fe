// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/platinummonkey/pluma/pkg/apperr"
	"github.com/platinummonkey/pluma/pkg/observability"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteOK writes a successful response (200 OK) with JSON data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteConflict writes a conflict error (409)
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}

// WriteInternalError writes a generic 500; the cause is logged, not returned
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

// StatusFor maps an engine error to its HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case apperr.IsPermissionDenied(err):
		return http.StatusForbidden
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsConflict(err), apperr.IsInvalidState(err):
		return http.StatusConflict
	}

	switch apperr.StorageKindOf(err) {
	case apperr.StorageConnectionRefused, apperr.StorageDatabaseMissing:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteAppError writes err with the status StatusFor assigns. Client errors
// carry their message; server errors are logged and answered generically.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := observability.FromContext(r.Context()).
		WithField("method", r.Method).
		WithField("path", r.URL.Path)

	switch status {
	case http.StatusInternalServerError:
		logger.WithError(err).Error("request failed")
		WriteInternalError(w)
	case http.StatusServiceUnavailable:
		logger.WithError(err).Error("storage unavailable")
		WriteServiceUnavailable(w, "service temporarily unavailable")
	case http.StatusForbidden:
		logger.WithError(err).Warn("permission denied")
		WriteForbidden(w, err.Error())
	default:
		WriteErrorMessage(w, status, err.Error())
	}
}
