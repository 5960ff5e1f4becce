package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/drivegate/internal/credential"
	"github.com/tonimelisma/drivegate/internal/drive"
)

// Envelope messages. Clients match on these strings.
const (
	msgNotAuthenticated = "User is not authenticated. Please, use the correct credentials."
	msgNotAuthorized    = "User is not authorized to perform this action."
	msgInternal         = "An internal server error occurred."
	msgKeyMissing       = "Fernet API key is not configured."
	msgNotFoundRoute    = "Not Found"
	msgMethodNotAllowed = "Method Not Allowed"
)

// APIError is the single error shape every route returns.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Detail)
	}

	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// NotAuthenticated is the 401 envelope.
func NotAuthenticated() *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: msgNotAuthenticated}
}

// NotAuthorized is the 403 envelope. No mapping produces it today; it is
// kept so the status is part of the documented contract.
func NotAuthorized() *APIError {
	return &APIError{Status: http.StatusForbidden, Message: msgNotAuthorized}
}

// NotFound is the 404 envelope for a missing item.
func NotFound(kind, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s of id '%s' not Found", kind, id),
	}
}

// BadRequest is a 400 envelope for malformed caller input.
func BadRequest(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: msg}
}

// Internal is the 500 envelope; cause is exposed in the error field.
func Internal(cause error) *APIError {
	e := &APIError{Status: http.StatusInternalServerError, Message: msgInternal}
	if cause != nil {
		e.Detail = cause.Error()
	}

	return e
}

// toAPIError maps any error from the credential or drive layers onto an
// envelope. Provider 403s are not mapped to NotAuthorized: they fall
// through to 500 with the provider's text in the error field.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, credential.ErrInvalidToken),
		errors.Is(err, drive.ErrNotAuthenticated),
		errors.Is(err, drive.ErrUnauthorized):
		return NotAuthenticated()

	case errors.Is(err, drive.ErrNotFound):
		var ie *drive.ItemError
		if errors.As(err, &ie) {
			return NotFound(ie.Kind, ie.ID)
		}

		return &APIError{Status: http.StatusNotFound, Message: msgNotFoundRoute}
	}

	return Internal(err)
}

// writeError logs err and renders its envelope.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := toAPIError(err)

	level := slog.LevelInfo
	if apiErr.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", requestIDFrom(r.Context())),
		slog.Int("status", apiErr.Status),
		slog.String("error", err.Error()),
	)

	writeJSON(w, apiErr.Status, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
