package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/travelupa/internal/domain"
)

// statusFor maps a service error to an HTTP status and a message safe to show.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Not authenticated."
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, "An account with that email already exists."
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, "The image could not be uploaded. Please try again."
	case errors.Is(err, domain.ErrCatalogWriteFailed):
		return http.StatusServiceUnavailable, "The destination could not be saved. Please try again."
	default:
		return http.StatusInternalServerError, "An unexpected error occurred. Please try again."
	}
}

// writeServiceError logs server-side failures and writes the mapped JSON error.
func writeServiceError(w http.ResponseWriter, action string, err error) {
	status, message := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		slog.Error(action, "error", err)
	case status != http.StatusNotFound:
		slog.Debug(action, "error", err)
	}
	writeError(w, status, message)
}
