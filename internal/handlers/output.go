package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// CardOutput turns a card into the artifacts the generator hands out:
// image, preview, share text and export kit. Draft and stateless card
// routes share it.
type CardOutput struct {
	Renderer         services.CardRendererInterface
	Downloads        services.DownloadServiceInterface
	Brand            string
	BaseURL          string
	MessengerBaseURL string
	Now              func() time.Time
}

type ShareResponse struct {
	models.ShareContent
	MessengerURL string `json:"messenger_url"`
}

type ExportResponse struct {
	DownloadURL  string                   `json:"download_url"`
	Filename     string                   `json:"filename"`
	ExpiresAt    time.Time                `json:"expires_at"`
	Share        models.ShareContent      `json:"share"`
	MessengerURL string                   `json:"messenger_url"`
	Instructions models.ShareInstructions `json:"instructions"`
}

func (o *CardOutput) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func cardETag(card models.CardData) string {
	return `W/"` + services.CardFingerprint(card) + `"`
}

// writePNG serves the card image inline. A positive ?width= scales it down.
func (o *CardOutput) writePNG(w http.ResponseWriter, r *http.Request, card models.CardData) {
	if errs := services.ValidateCard(card); len(errs) > 0 {
		writeCardError(w, errs, "render")
		return
	}

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive integer")
			return
		}
		width = n
	}

	etag := cardETag(card)
	if width > 0 {
		etag = strings.TrimSuffix(etag, `"`) + "-" + strconv.Itoa(width) + `"`
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && strings.Contains(inm, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var (
		pngBytes []byte
		err      error
	)
	if width > 0 {
		pngBytes, err = o.Renderer.Thumbnail(r.Context(), card, width)
	} else {
		pngBytes, err = o.Renderer.Render(r.Context(), card)
	}
	if err != nil {
		writeCardError(w, err, "render")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pngBytes)
}

// writePreview serves the HTML fragment. Incomplete cards still preview.
func (o *CardOutput) writePreview(w http.ResponseWriter, r *http.Request, card models.CardData) {
	html, err := services.RenderCardPreview(card, services.PreviewOptions{
		MountID: r.URL.Query().Get("mount_id"),
		Brand:   o.Brand,
	})
	if err != nil {
		writeCardError(w, err, "preview")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (o *CardOutput) shareContent(card models.CardData) (ShareResponse, error) {
	if errs := services.ValidateCard(card); len(errs) > 0 {
		return ShareResponse{}, errs
	}
	content, err := services.GenerateShareContent(card)
	if err != nil {
		return ShareResponse{}, err
	}
	return ShareResponse{
		ShareContent: content,
		MessengerURL: services.MessengerURL(o.MessengerBaseURL, content.Text),
	}, nil
}

func (o *CardOutput) writeShare(w http.ResponseWriter, card models.CardData) {
	resp, err := o.shareContent(card)
	if err != nil {
		writeCardError(w, err, "share")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeExport renders the card, parks it behind a single-use download link
// and returns everything the client needs for the two-step handoff.
func (o *CardOutput) writeExport(w http.ResponseWriter, r *http.Request, card models.CardData) {
	share, err := o.shareContent(card)
	if err != nil {
		writeCardError(w, err, "export")
		return
	}
	pngBytes, err := o.Renderer.Render(r.Context(), card)
	if err != nil {
		writeCardError(w, err, "export")
		return
	}

	filename := services.DownloadFilename(card, o.now())
	dl, err := o.Downloads.Create(r.Context(), pngBytes, filename)
	if err != nil {
		writeCardError(w, err, "export")
		return
	}

	writeJSON(w, http.StatusCreated, ExportResponse{
		DownloadURL:  strings.TrimSuffix(o.BaseURL, "/") + "/d/" + dl.Token,
		Filename:     dl.Filename,
		ExpiresAt:    dl.ExpiresAt,
		Share:        share.ShareContent,
		MessengerURL: share.MessengerURL,
		Instructions: services.DefaultShareInstructions(),
	})
}
