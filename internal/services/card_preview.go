package services

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"regexp"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// DefaultMountID wraps the preview when the caller does not name one.
const DefaultMountID = "card-preview"

//go:embed templates/card.html
var templateFS embed.FS

var cardTemplates = template.Must(template.ParseFS(templateFS, "templates/card.html"))

var mountIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// PreviewOptions controls the HTML preview.
type PreviewOptions struct {
	MountID string
	Brand   string
}

type fragmentData struct {
	MountID string
	View    CardView
	QRImage template.URL
}

// CardPageData is the full-page variant used for published cards.
type CardPageData struct {
	Found        bool
	PageTitle    string
	ErrorMessage string

	OGTitle       string
	OGDescription string
	OGURL         string
	OGImage       string
	OGImageAlt    string

	ShareText    string
	MessengerURL string
	Instructions *models.ShareInstructions

	Fragment fragmentData
}

// RenderCardPreview renders card as an HTML fragment wrapped in an element
// with the given mount id. It paints the same CardView as the PNG renderer.
func RenderCardPreview(card models.CardData, opts PreviewOptions) (string, error) {
	frag, err := buildFragment(card, opts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, "card_fragment", frag); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

// NewCardPage fills the card part of a page. The caller adds OG tags and
// overlay content.
func NewCardPage(card models.CardData, opts PreviewOptions) (CardPageData, error) {
	frag, err := buildFragment(card, opts)
	if err != nil {
		return CardPageData{}, err
	}
	return CardPageData{
		Found:     true,
		PageTitle: frag.View.Heading + " - " + frag.View.Name + " | " + frag.View.Brand,
		Fragment:  frag,
	}, nil
}

// RenderCardPage renders a full HTML document.
func RenderCardPage(data CardPageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, "card_page", data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func buildFragment(card models.CardData, opts PreviewOptions) (fragmentData, error) {
	view, err := ProjectCard(card, opts.Brand)
	if err != nil {
		return fragmentData{}, err
	}
	return fragmentData{
		MountID: resolveMountID(opts.MountID),
		View:    view,
		QRImage: qrDataURL(view.QRPayload),
	}, nil
}

func resolveMountID(id string) string {
	if !mountIDPattern.MatchString(id) {
		return DefaultMountID
	}
	return id
}

func qrDataURL(payload string) template.URL {
	if payload == "" {
		return ""
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, 128)
	if err != nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}
