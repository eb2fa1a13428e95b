// Package http provides the HTTP handlers and routing for the
// TaskKeeper reference API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/TaskKeeper/internal/models"
	"github.com/atinyakov/TaskKeeper/internal/service"
)

// writeJSON writes payload with the given transport status code.
func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeEnvelope writes a bare status+message envelope. Business
// failures travel as HTTP 200 with the embedded status carrying the
// outcome; the client inspects the envelope.
func writeEnvelope(w http.ResponseWriter, status int, message string) {
	writeJSON(w, http.StatusOK, models.BaseResponse{Status: status, Message: message})
}

// writeServiceError maps a service error onto the envelope contract.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeEnvelope(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeEnvelope(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		writeEnvelope(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeEnvelope(w, http.StatusNotFound, "not found")
	default:
		writeJSON(w, http.StatusInternalServerError, models.BaseResponse{
			Status:  http.StatusInternalServerError,
			Message: "internal error",
		})
	}
}
