package services

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// InfoCell is one entry of the 2x2 grid on the card body.
type InfoCell struct {
	Label string
	Value string
}

// CardView is a card resolved into display strings. The PNG renderer and the
// HTML preview both paint a CardView and never look at the raw card.
type CardView struct {
	Category models.Category
	Kind     models.Kind
	Theme    models.CategoryConfig

	Title   string
	Heading string
	Brand   string

	Name     string
	Location string
	Message  string

	Badge         string
	OfferingLabel string
	OfferingValue string
	Grid          [4]InfoCell

	ContactPerson  string
	PrimaryPhone   string
	SecondaryPhone string
	Relationship   string

	CardID    string
	QRPayload string
}

type projector struct {
	badge      func(models.CardData) string
	offering   func(models.CardData) (label, value string)
	detail     func(models.CardData) InfoCell
	shareFacts func(models.CardData) []string
}

var projectors = map[models.Category]projector{
	models.CategoryBlood: {
		badge: func(c models.CardData) string {
			return strings.TrimSpace(bloodOf(c).BloodType)
		},
		offering: func(c models.CardData) (string, string) {
			return "Blood Donation", fmt.Sprintf("%d times", bloodOf(c).DonationCount)
		},
		detail: func(c models.CardData) InfoCell {
			return InfoCell{Label: "Last Donation", Value: orNA(bloodOf(c).LastDonation)}
		},
		shareFacts: func(c models.CardData) []string {
			b := bloodOf(c)
			return facts(
				"🩸 Blood Type", b.BloodType,
				"💉 Donations", fmt.Sprintf("%d times", b.DonationCount),
				"📅 Last Donation", b.LastDonation,
			)
		},
	},
	models.CategoryOrgans: {
		badge: func(c models.CardData) string {
			return truncateRunes(strings.TrimSpace(organOf(c).OrganType), 6)
		},
		offering: func(c models.CardData) (string, string) {
			return "Organ Donation", organOf(c).HealthStatus
		},
		detail: func(c models.CardData) InfoCell {
			return InfoCell{Label: "Organ", Value: orNA(organOf(c).OrganType)}
		},
		shareFacts: func(c models.CardData) []string {
			o := organOf(c)
			return facts(
				"🫀 Organ", o.OrganType,
				"❤️ Health Status", o.HealthStatus,
			)
		},
	},
	models.CategoryFundraiser: {
		badge: func(c models.CardData) string {
			v, _ := parseAmount(fundraiserOf(c).MaxAmount)
			return fmt.Sprintf("%dK", int64(math.Round(v/1000)))
		},
		offering: func(c models.CardData) (string, string) {
			return "Financial Support", "LKR " + formatAmount(fundraiserOf(c).MaxAmount)
		},
		detail: func(c models.CardData) InfoCell {
			return InfoCell{Label: "Preferred Use", Value: orNA(fundraiserOf(c).PreferredUse)}
		},
		shareFacts: func(c models.CardData) []string {
			f := fundraiserOf(c)
			return facts(
				"💰 Amount", "LKR "+formatAmount(f.MaxAmount),
				"🎯 Preferred Use", f.PreferredUse,
				"📋 Requirements", f.Requirements,
			)
		},
	},
	models.CategoryMedicines: {
		badge: func(c models.CardData) string {
			meds := medicinesOf(c).NonBlankMedicines()
			if len(meds) == 0 {
				return ""
			}
			return truncateRunes(meds[0], 8)
		},
		offering: func(c models.CardData) (string, string) {
			return "Medicine Donation", fmt.Sprintf("%d types", len(medicinesOf(c).NonBlankMedicines()))
		},
		detail: func(c models.CardData) InfoCell {
			return InfoCell{Label: "Expiry", Value: orNA(medicinesOf(c).Expiry)}
		},
		shareFacts: func(c models.CardData) []string {
			m := medicinesOf(c)
			return facts(
				"💊 Medicines", strings.Join(m.NonBlankMedicines(), ", "),
				"📦 Quantity", m.Quantity,
				"📅 Expiry", m.Expiry,
			)
		},
	},
	models.CategorySupplies: {
		badge: func(c models.CardData) string {
			return truncateRunes(strings.TrimSpace(suppliesOf(c).SuppliesType), 8)
		},
		offering: func(c models.CardData) (string, string) {
			return "Medical Supplies", suppliesOf(c).SuppliesType
		},
		detail: func(c models.CardData) InfoCell {
			return InfoCell{Label: "Quantity", Value: orNA(suppliesOf(c).Quantity)}
		},
		shareFacts: func(c models.CardData) []string {
			s := suppliesOf(c)
			return facts(
				"🩺 Supplies", s.SuppliesType,
				"📦 Quantity", s.Quantity,
			)
		},
	},
}

func projectorFor(c models.Category) (projector, error) {
	p, ok := projectors[c]
	if !ok {
		return projector{}, models.ErrInvalidCategory
	}
	return p, nil
}

// ProjectCard resolves every category-dependent display decision for card.
func ProjectCard(card models.CardData, brand string) (CardView, error) {
	p, err := projectorFor(card.Category)
	if err != nil {
		return CardView{}, err
	}
	theme, err := models.CategoryConfigFor(card.Category)
	if err != nil {
		return CardView{}, err
	}
	if brand == "" {
		brand = DefaultBrand
	}

	label, value := p.offering(card)
	view := CardView{
		Category:       card.Category,
		Kind:           card.Kind,
		Theme:          theme,
		Title:          cardTitle(card.Kind),
		Heading:        headingFor(theme, card.Kind),
		Brand:          brand,
		Name:           strings.TrimSpace(card.Name),
		Location:       strings.TrimSpace(card.Location),
		Message:        strings.TrimSpace(card.Message),
		Badge:          p.badge(card),
		OfferingLabel:  label,
		OfferingValue:  value,
		ContactPerson:  strings.TrimSpace(card.ContactPerson),
		PrimaryPhone:   strings.TrimSpace(card.PrimaryPhone),
		SecondaryPhone: strings.TrimSpace(card.SecondaryPhone),
		Relationship:   strings.TrimSpace(card.Relationship),
		CardID:         CardID(card),
		QRPayload:      qrPayload(card.PrimaryPhone),
	}
	view.Grid = [4]InfoCell{
		{Label: label, Value: orNA(value)},
		p.detail(card),
		{Label: "Availability", Value: orNA(string(card.Availability))},
		{Label: "Urgency", Value: orNA(card.Urgency.Label())},
	}
	return view, nil
}

// DefaultBrand is drawn when no brand is configured.
const DefaultBrand = "Vytal"

func cardTitle(kind models.Kind) string {
	if kind == models.KindRecipient {
		return "REQUEST CARD"
	}
	return "DONOR CARD"
}

func headingFor(theme models.CategoryConfig, kind models.Kind) string {
	if kind == models.KindRecipient {
		return theme.RecipientTitle
	}
	return theme.DonorTitle
}

// CardFingerprint is a stable hash of the card's content.
func CardFingerprint(card models.CardData) string {
	card = card.Clone()
	card.Normalize()
	data, _ := json.Marshal(card)
	h := fnv.New64a()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CardID is the short reference printed in the footer. It looks random but
// is derived from the content, so re-rendering a card keeps the same ID.
func CardID(card models.CardData) string {
	card = card.Clone()
	card.Normalize()
	data, _ := json.Marshal(card)
	h := fnv.New32a()
	_, _ = h.Write(data)
	return fmt.Sprintf("VYT-%08d", h.Sum32()%100000000)
}

func qrPayload(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || (r == '+' && b.Len() == 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "tel:" + b.String()
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders a numeric string with thousands separators. Values
// that do not parse are returned trimmed but otherwise untouched.
func formatAmount(s string) string {
	v, ok := parseAmount(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return amountPrinter.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return strings.TrimSpace(s)
}

// facts pairs labels and values, skipping blank values.
func facts(pairs ...string) []string {
	out := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := strings.TrimSpace(pairs[i+1]); v != "" {
			out = append(out, pairs[i]+": "+v)
		}
	}
	return out
}

func bloodOf(c models.CardData) models.BloodOffering {
	v, _ := c.Offering().(models.BloodOffering)
	return v
}

func organOf(c models.CardData) models.OrganOffering {
	v, _ := c.Offering().(models.OrganOffering)
	return v
}

func fundraiserOf(c models.CardData) models.FundraiserOffering {
	v, _ := c.Offering().(models.FundraiserOffering)
	return v
}

func medicinesOf(c models.CardData) models.MedicineOffering {
	v, _ := c.Offering().(models.MedicineOffering)
	return v
}

func suppliesOf(c models.CardData) models.SuppliesOffering {
	v, _ := c.Offering().(models.SuppliesOffering)
	return v
}
