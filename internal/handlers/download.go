package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/vytalcards/internal/services"
)

type DownloadHandler struct {
	downloads services.DownloadServiceInterface
}

func NewDownloadHandler(downloads services.DownloadServiceInterface) *DownloadHandler {
	return &DownloadHandler{downloads: downloads}
}

// Serve hands out a parked image once. The handle is gone afterwards.
func (h *DownloadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if !services.IsValidDownloadToken(token) {
		http.NotFound(w, r)
		return
	}
	dl, err := h.downloads.Take(r.Context(), token)
	if errors.Is(err, services.ErrDownloadNotFound) {
		writeError(w, http.StatusGone, "Download link expired or already used")
		return
	}
	if err != nil {
		writeCardError(w, err, "download")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.PNG)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.PNG)
}
