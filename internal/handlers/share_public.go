package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

// SharePublicHandler serves the landing page for a published card. Link
// unfurlers read its OpenGraph tags.
type SharePublicHandler struct {
	publish          services.PublishServiceInterface
	baseURL          string
	brand            string
	messengerBaseURL string
}

func NewSharePublicHandler(publish services.PublishServiceInterface, baseURL, brand, messengerBaseURL string) *SharePublicHandler {
	return &SharePublicHandler{
		publish:          publish,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		brand:            brand,
		messengerBaseURL: messengerBaseURL,
	}
}

func (h *SharePublicHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	if !services.IsValidShareToken(token) {
		h.render(w, http.StatusNotFound, services.CardPageData{
			PageTitle:    "Invalid Share Link - " + h.brandName(),
			ErrorMessage: "This share link is missing or malformed.",
		})
		return
	}

	published, err := h.publish.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, services.ErrShareNotFound) {
			logging.Error("Error loading shared card", map[string]interface{}{"error": err.Error()})
			h.render(w, http.StatusInternalServerError, services.CardPageData{
				PageTitle:    "Error - " + h.brandName(),
				ErrorMessage: "An unexpected error occurred.",
			})
			return
		}
		h.render(w, http.StatusNotFound, services.CardPageData{
			PageTitle:    "Share Link Not Found - " + h.brandName(),
			ErrorMessage: "This share link may have expired or been revoked.",
		})
		return
	}

	page, err := services.NewCardPage(published.Card, services.PreviewOptions{Brand: h.brand})
	if err != nil {
		logging.Error("Error building share page", map[string]interface{}{"error": err.Error()})
		h.render(w, http.StatusInternalServerError, services.CardPageData{
			PageTitle:    "Error - " + h.brandName(),
			ErrorMessage: "An unexpected error occurred.",
		})
		return
	}

	view := page.Fragment.View
	page.OGTitle = view.Heading + ": " + view.Name
	page.OGDescription = view.Location + " - " + view.OfferingLabel
	page.OGURL = h.baseURL + "/s/" + token
	page.OGImage = h.baseURL + "/og/share/" + token + ".png?v=" + services.CardFingerprint(published.Card)
	page.OGImageAlt = view.Title + " for " + view.Name

	if share, err := services.GenerateShareContent(published.Card); err == nil {
		page.ShareText = share.Text
		page.MessengerURL = services.MessengerURL(h.messengerBaseURL, share.Text)
		instructions := services.DefaultShareInstructions()
		page.Instructions = &instructions
	}

	h.render(w, http.StatusOK, page)
}

func (h *SharePublicHandler) brandName() string {
	if h.brand == "" {
		return services.DefaultBrand
	}
	return h.brand
}

func (h *SharePublicHandler) render(w http.ResponseWriter, status int, data services.CardPageData) {
	body, err := services.RenderCardPage(data)
	if err != nil {
		logging.Error("Error rendering share page", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
