// Package handlers exposes the webhook and CRM-facing HTTP endpoints and
// translates service errors into the shared response envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"crm-channel-bridge/internal/apperrors"
)

// envelope is the shape every response uses:
// { success, data?, error?, details? }.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError maps the error kind to its HTTP status: validation 400,
// not found 404, upstream failures mirror the dependency's status, and
// anything else is a 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := envelope{Error: err.Error()}

	var validationErr *apperrors.ValidationError
	var notFoundErr *apperrors.NotFoundError
	var upstreamErr *apperrors.UpstreamError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &upstreamErr):
		status = http.StatusBadGateway
		if upstreamErr.Status != 0 {
			status = upstreamErr.Status
		}
		body.Details = map[string]any{
			"system": upstreamErr.System,
			"status": upstreamErr.Status,
			"body":   upstreamErr.Body,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		log.Error().Err(encodeErr).Msg("Failed to encode JSON error response")
	}
}

func decodeBody(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apperrors.NewValidation("body", "invalid JSON payload")
	}
	return nil
}
