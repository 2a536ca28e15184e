package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// OGImageHandler serves the site-wide unfurl image: the sample blood donor
// card, rendered once.
type OGImageHandler struct {
	renderer services.CardRendererInterface

	once     sync.Once
	pngBytes []byte
	err      error
}

func NewOGImageHandler(renderer services.CardRendererInterface) *OGImageHandler {
	return &OGImageHandler{renderer: renderer}
}

func (h *OGImageHandler) Default(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		card := models.MustDefaults(models.DefaultCategory)
		h.pngBytes, h.err = h.renderer.Thumbnail(context.Background(), card, ogImageWidth)
	})

	if h.err != nil {
		http.Error(w, "Failed to render image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.pngBytes)
}
