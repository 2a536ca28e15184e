package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// CardHandler serves cards posted in full, without a draft.
type CardHandler struct {
	output *CardOutput
}

func NewCardHandler(output *CardOutput) *CardHandler {
	return &CardHandler{output: output}
}

func (h *CardHandler) Render(w http.ResponseWriter, r *http.Request) {
	if card, ok := decodeCard(w, r); ok {
		h.output.writePNG(w, r, card)
	}
}

func (h *CardHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if card, ok := decodeCard(w, r); ok {
		h.output.writePreview(w, r, card)
	}
}

func (h *CardHandler) Share(w http.ResponseWriter, r *http.Request) {
	if card, ok := decodeCard(w, r); ok {
		h.output.writeShare(w, card)
	}
}

// decodeCard reads a posted card, rejects unknown enum values and drops
// sub-records of inactive categories.
func decodeCard(w http.ResponseWriter, r *http.Request) (models.CardData, bool) {
	var card models.CardData
	if !decodeJSON(w, r, &card, false) {
		return card, false
	}
	if err := card.CheckEnums(); err != nil {
		writeCardError(w, err, "decode card")
		return card, false
	}
	card.Normalize()
	return card, true
}
