package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// manageKeyHeader carries the key returned by Publish on revoke.
const manageKeyHeader = "X-Manage-Key"

type ShareHandler struct {
	publish services.PublishServiceInterface
	baseURL string
}

func NewShareHandler(publish services.PublishServiceInterface, baseURL string) *ShareHandler {
	return &ShareHandler{publish: publish, baseURL: strings.TrimSuffix(baseURL, "/")}
}

type PublishCardRequest struct {
	Card          models.CardData `json:"card"`
	ExpiresInDays *int            `json:"expires_in_days,omitempty"`
}

type PublishCardResponse struct {
	Token     string     `json:"token"`
	ManageKey string     `json:"manage_key"`
	URL       string     `json:"url"`
	ImageURL  string     `json:"image_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *ShareHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishCardRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	published, manageKey, err := h.publish.Publish(r.Context(), req.Card, req.ExpiresInDays)
	if errors.Is(err, services.ErrInvalidShareExpiry) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeCardError(w, err, "publish")
		return
	}

	writeJSON(w, http.StatusCreated, PublishCardResponse{
		Token:     published.Token,
		ManageKey: manageKey,
		URL:       h.baseURL + "/s/" + published.Token,
		ImageURL:  h.baseURL + "/og/share/" + published.Token,
		CreatedAt: published.CreatedAt,
		ExpiresAt: published.ExpiresAt,
	})
}

func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	if !services.IsValidShareToken(token) {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	published, err := h.publish.Get(r.Context(), token)
	if errors.Is(err, services.ErrShareNotFound) {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	if err != nil {
		logging.Error("Error loading share", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, published)
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	if !services.IsValidShareToken(token) {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	manageKey := strings.TrimSpace(r.Header.Get(manageKeyHeader))
	if manageKey == "" {
		writeError(w, http.StatusUnauthorized, "Manage key required")
		return
	}

	err := h.publish.Revoke(r.Context(), token, manageKey)
	switch {
	case errors.Is(err, services.ErrShareNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
	case errors.Is(err, services.ErrManageKeyMismatch):
		writeError(w, http.StatusForbidden, "Manage key does not match")
	case err != nil:
		logging.Error("Error revoking share", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
