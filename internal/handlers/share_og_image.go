package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// ogImageWidth keeps unfurl images small enough for messenger previews.
const ogImageWidth = 600

type ShareOGImageHandler struct {
	publish  services.PublishServiceInterface
	renderer services.CardRendererInterface
}

func NewShareOGImageHandler(publish services.PublishServiceInterface, renderer services.CardRendererInterface) *ShareOGImageHandler {
	return &ShareOGImageHandler{publish: publish, renderer: renderer}
}

func (h *ShareOGImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	token = strings.TrimSuffix(token, ".png")
	if !services.IsValidShareToken(token) {
		http.NotFound(w, r)
		return
	}

	published, err := h.publish.Get(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrShareNotFound) {
			http.NotFound(w, r)
			return
		}
		logging.Error("Error loading shared card image", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	etag := cardETag(published.Card)
	if inm := r.Header.Get("If-None-Match"); inm != "" && strings.Contains(inm, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	pngBytes, err := h.renderer.Thumbnail(r.Context(), published.Card, ogImageWidth)
	if err != nil {
		logging.Error("Error rendering shared card image", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Failed to render image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Robots-Tag", "noindex")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pngBytes)
}
