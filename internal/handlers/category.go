package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

type CategoriesResponse struct {
	Categories      []models.CategoryConfig `json:"categories"`
	DefaultCategory models.Category         `json:"default_category"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{
		Categories:      models.AllCategoryConfigs(),
		DefaultCategory: models.DefaultCategory,
	})
}

// Defaults returns a fresh copy of the sample card for a category.
func (h *CategoryHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	card, err := models.Defaults(models.Category(r.PathValue("category")))
	if errors.Is(err, models.ErrInvalidCategory) {
		writeError(w, http.StatusNotFound, "Unknown category")
		return
	}
	if err != nil {
		writeCardError(w, err, "defaults")
		return
	}
	writeJSON(w, http.StatusOK, card)
}
