package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/newslens/internal/api/shared"
	"github.com/phrazzld/newslens/internal/service"
)

// errInvalidTaskID is returned when the task ID path parameter is not a UUID.
var errInvalidTaskID = errors.New("invalid task ID")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidEntity),
		errors.Is(err, errInvalidTaskID):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	// The task was recorded as failed; retrying later starts a new attempt.
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-friendly message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, service.ErrInvalidEntity):
		return "Invalid company name"
	case errors.Is(err, errInvalidTaskID):
		return "Invalid task ID"
	case errors.Is(err, service.ErrTaskNotFound):
		return "Analysis task not found"
	case errors.Is(err, service.ErrBusy):
		return "Analysis capacity exhausted, try again later"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err and logs the cause.
// A non-empty message overrides the mapped one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, logger, MapErrorToStatusCode(err), message, err)
}
