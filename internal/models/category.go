package models

import (
	"errors"
	"fmt"
	"image/color"
)

type Category string

const (
	CategoryBlood      Category = "blood"
	CategoryOrgans     Category = "organs"
	CategoryFundraiser Category = "fundraiser"
	CategoryMedicines  Category = "medicines"
	CategorySupplies   Category = "supplies"
)

// DefaultCategory is used when a caller does not pick one.
const DefaultCategory = CategoryBlood

var ErrInvalidCategory = errors.New("invalid category")

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBlood,
	CategoryOrgans,
	CategoryFundraiser,
	CategoryMedicines,
	CategorySupplies,
}

func (c Category) IsValid() bool {
	_, ok := categoryConfigs[c]
	return ok
}

// CategoryConfig holds the presentation constants shared by the PNG renderer,
// the HTML preview and the share text.
type CategoryConfig struct {
	Category       Category   `json:"category"`
	Label          string     `json:"label"`
	Emoji          string     `json:"emoji"`
	Primary        color.RGBA `json:"-"`
	GradientEnd    color.RGBA `json:"-"`
	Background     color.RGBA `json:"-"`
	PrimaryHex     string     `json:"primary_color"`
	GradientEndHex string     `json:"gradient_end_color"`
	BackgroundHex  string     `json:"background_color"`
	Hashtag        string     `json:"hashtag"`
	DonorTitle     string     `json:"donor_title"`
	RecipientTitle string     `json:"recipient_title"`
	DonorCTA       string     `json:"donor_cta"`
	RecipientCTA   string     `json:"recipient_cta"`
}

var categoryConfigs = map[Category]CategoryConfig{
	CategoryBlood: newCategoryConfig(CategoryConfig{
		Category:       CategoryBlood,
		Label:          "Blood",
		Emoji:          "🩸",
		Primary:        color.RGBA{0xDC, 0x26, 0x26, 0xFF},
		GradientEnd:    color.RGBA{0x99, 0x1B, 0x1B, 0xFF},
		Background:     color.RGBA{0xFE, 0xF2, 0xF2, 0xFF},
		Hashtag:        "#BloodDonation",
		DonorTitle:     "Blood Donor Available",
		RecipientTitle: "Blood Donor Needed",
		DonorCTA:       "Reach out if you or someone you know needs blood. Every drop counts!",
		RecipientCTA:   "Please share this request so it reaches a matching donor quickly.",
	}),
	CategoryOrgans: newCategoryConfig(CategoryConfig{
		Category:       CategoryOrgans,
		Label:          "Organs",
		Emoji:          "🫀",
		Primary:        color.RGBA{0x7C, 0x3A, 0xED, 0xFF},
		GradientEnd:    color.RGBA{0x5B, 0x21, 0xB6, 0xFF},
		Background:     color.RGBA{0xF5, 0xF3, 0xFF, 0xFF},
		Hashtag:        "#OrganDonation",
		DonorTitle:     "Organ Donor Available",
		RecipientTitle: "Organ Donor Needed",
		DonorCTA:       "Contact me to discuss a possible match. Give the gift of life!",
		RecipientCTA:   "Please share this request. A single match can save a life.",
	}),
	CategoryFundraiser: newCategoryConfig(CategoryConfig{
		Category:       CategoryFundraiser,
		Label:          "Fundraiser",
		Emoji:          "💰",
		Primary:        color.RGBA{0x05, 0x96, 0x69, 0xFF},
		GradientEnd:    color.RGBA{0x04, 0x78, 0x57, 0xFF},
		Background:     color.RGBA{0xEC, 0xFD, 0xF5, 0xFF},
		Hashtag:        "#Fundraiser",
		DonorTitle:     "Financial Support Available",
		RecipientTitle: "Financial Support Needed",
		DonorCTA:       "Get in touch if you need help covering medical costs.",
		RecipientCTA:   "Every contribution helps. Please donate or share this appeal.",
	}),
	CategoryMedicines: newCategoryConfig(CategoryConfig{
		Category:       CategoryMedicines,
		Label:          "Medicines",
		Emoji:          "💊",
		Primary:        color.RGBA{0x25, 0x63, 0xEB, 0xFF},
		GradientEnd:    color.RGBA{0x1E, 0x40, 0xAF, 0xFF},
		Background:     color.RGBA{0xEF, 0xF6, 0xFF, 0xFF},
		Hashtag:        "#MedicineDonation",
		DonorTitle:     "Medicines Available",
		RecipientTitle: "Medicines Needed",
		DonorCTA:       "Contact me if these medicines can help you or a loved one.",
		RecipientCTA:   "Please share this request with anyone who can spare these medicines.",
	}),
	CategorySupplies: newCategoryConfig(CategoryConfig{
		Category:       CategorySupplies,
		Label:          "Supplies",
		Emoji:          "🩺",
		Primary:        color.RGBA{0xEA, 0x58, 0x0C, 0xFF},
		GradientEnd:    color.RGBA{0xC2, 0x41, 0x0C, 0xFF},
		Background:     color.RGBA{0xFF, 0xF7, 0xED, 0xFF},
		Hashtag:        "#MedicalSupplies",
		DonorTitle:     "Medical Supplies Available",
		RecipientTitle: "Medical Supplies Needed",
		DonorCTA:       "Reach out if you need these supplies. Happy to help!",
		RecipientCTA:   "Please share this request with anyone who has these supplies to spare.",
	}),
}

func newCategoryConfig(c CategoryConfig) CategoryConfig {
	c.PrimaryHex = HexColor(c.Primary)
	c.GradientEndHex = HexColor(c.GradientEnd)
	c.BackgroundHex = HexColor(c.Background)
	return c
}

// CategoryConfigFor returns the presentation config for c.
func CategoryConfigFor(c Category) (CategoryConfig, error) {
	cfg, ok := categoryConfigs[c]
	if !ok {
		return CategoryConfig{}, ErrInvalidCategory
	}
	return cfg, nil
}

// AllCategoryConfigs returns the configs in display order.
func AllCategoryConfigs() []CategoryConfig {
	out := make([]CategoryConfig, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, categoryConfigs[c])
	}
	return out
}

// HexColor formats c as #RRGGBB.
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
