package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// maxCardBody bounds posted cards and patches.
const maxCardBody = 64 * 1024

type ErrorResponse struct {
	Error    string                    `json:"error"`
	Errors   services.ValidationErrors `json:"errors,omitempty"`
	Fallback string                    `json:"fallback,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body into dst. An empty body is allowed
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxCardBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeCardError maps card, render and draft errors to responses. Anything
// unrecognised is logged and reported as a 500.
func writeCardError(w http.ResponseWriter, err error, op string) {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Card is incomplete",
			Errors: verrs,
		})
	case errors.Is(err, models.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "Invalid category")
	case errors.Is(err, models.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "Invalid kind")
	case errors.Is(err, models.ErrInvalidUrgency):
		writeError(w, http.StatusBadRequest, "Invalid urgency")
	case errors.Is(err, models.ErrInvalidAvailability):
		writeError(w, http.StatusBadRequest, "Invalid availability")
	case errors.Is(err, services.ErrDraftNotFound):
		writeError(w, http.StatusNotFound, "Draft not found")
	case errors.Is(err, services.ErrRenderUnavailable):
		logging.Error("Card render failed", map[string]interface{}{"op": op, "error": err.Error()})
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:    "Image generation unavailable",
			Fallback: services.ScreenshotFallback,
		})
	default:
		logging.Error("Card request failed", map[string]interface{}{"op": op, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
