package services

import (
	"strings"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// GenerateShareContent builds the messenger-ready text for card. Name,
// location, phone and message are copied in verbatim.
func GenerateShareContent(card models.CardData) (models.ShareContent, error) {
	view, err := ProjectCard(card, "")
	if err != nil {
		return models.ShareContent{}, err
	}
	p, err := projectorFor(card.Category)
	if err != nil {
		return models.ShareContent{}, err
	}

	title := view.Theme.Emoji + " " + view.Heading
	if view.Badge != "" {
		title += " - " + view.Badge
	}

	var b strings.Builder
	section := func(lines ...string) {
		if len(lines) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	section("*" + title + "*")

	details := []string{
		"👤 Name: " + card.Name,
		"📍 Location: " + card.Location,
	}
	details = append(details, p.shareFacts(card)...)
	details = append(details, facts(
		"⏰ Availability", string(card.Availability),
		"🚨 Urgency", card.Urgency.Label(),
	)...)
	section(details...)

	contact := []string{"📞 Contact"}
	contact = append(contact, facts("Contact Person", card.ContactPerson)...)
	contact = append(contact, "Phone: "+card.PrimaryPhone)
	contact = append(contact, facts(
		"Alt Phone", card.SecondaryPhone,
		"Relationship", card.Relationship,
	)...)
	section(contact...)

	section(`"` + card.Message + `"`)
	section(callToAction(view.Theme, card.Kind))
	section(strings.Join([]string{"#" + DefaultBrand, view.Theme.Hashtag, "#SaveLives"}, " "))

	return models.ShareContent{Title: title, Text: b.String()}, nil
}

func callToAction(theme models.CategoryConfig, kind models.Kind) string {
	if kind == models.KindRecipient {
		return theme.RecipientCTA
	}
	return theme.DonorCTA
}
