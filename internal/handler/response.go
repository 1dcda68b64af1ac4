package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send JSON responses and errors.
// Every error response from the API has the same shape:
//
//	{"detail": "user torvalds not found"}
//
// so clients always know what field to expect, whether it's a 400, 401,
// or 404.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/github-users/internal/apperror"
	"github.com/sakif/github-users/internal/service"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader, and WriteHeader before the body —
// once the body starts, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// The mapping lives here and not in the service layer because the service
// should not know about HTTP status codes — a different transport would map
// the same domain errors its own way.
//
// NotFound and Unauthenticated are deliberately distinct statuses: a client
// must be able to tell "bad credentials" from "no such record".
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "an internal error occurred"

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrQueryTooShort):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
		detail = err.Error()
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		detail = err.Error()
	case errors.Is(err, service.ErrNotLoaded):
		status = http.StatusServiceUnavailable
		detail = "dataset not loaded"
	case errors.As(err, &appErr):
		detail = appErr.Message
	}
	// Unknown errors fall through as a generic 500 — never expose internal
	// error details (paths, SQL) to the client.

	writeJSON(w, status, ErrorResponse{Detail: detail})
}
