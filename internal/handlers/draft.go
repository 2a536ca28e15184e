package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

type DraftHandler struct {
	drafts services.DraftServiceInterface
	output *CardOutput
}

func NewDraftHandler(drafts services.DraftServiceInterface, output *CardOutput) *DraftHandler {
	return &DraftHandler{drafts: drafts, output: output}
}

type CreateDraftRequest struct {
	Category models.Category `json:"category,omitempty"`
	Kind     models.Kind     `json:"kind,omitempty"`
}

type ResetDraftRequest struct {
	Category models.Category `json:"category,omitempty"`
}

func parseDraftID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	draft, err := h.drafts.Create(r.Context(), req.Category, req.Kind)
	if err != nil {
		writeCardError(w, err, "create draft")
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseDraftID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid draft ID")
		return
	}
	var patch models.CardPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	draft, err := h.drafts.Update(r.Context(), id, patch)
	if err != nil {
		writeCardError(w, err, "update draft")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *DraftHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := parseDraftID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid draft ID")
		return
	}
	var req ResetDraftRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	draft, err := h.drafts.Reset(r.Context(), id, req.Category)
	if err != nil {
		writeCardError(w, err, "reset draft")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseDraftID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid draft ID")
		return
	}
	if err := h.drafts.Discard(r.Context(), id); err != nil {
		writeCardError(w, err, "discard draft")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if draft, ok := h.load(w, r); ok {
		h.output.writePreview(w, r, draft.Card)
	}
}

func (h *DraftHandler) Image(w http.ResponseWriter, r *http.Request) {
	if draft, ok := h.load(w, r); ok {
		h.output.writePNG(w, r, draft.Card)
	}
}

func (h *DraftHandler) Share(w http.ResponseWriter, r *http.Request) {
	if draft, ok := h.load(w, r); ok {
		h.output.writeShare(w, draft.Card)
	}
}

func (h *DraftHandler) Export(w http.ResponseWriter, r *http.Request) {
	if draft, ok := h.load(w, r); ok {
		h.output.writeExport(w, r, draft.Card)
	}
}

func (h *DraftHandler) load(w http.ResponseWriter, r *http.Request) (*services.Draft, bool) {
	id, err := parseDraftID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid draft ID")
		return nil, false
	}
	draft, err := h.drafts.Get(r.Context(), id)
	if err != nil {
		writeCardError(w, err, "load draft")
		return nil, false
	}
	return draft, true
}
