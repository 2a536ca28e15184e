package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
	"github.com/HammerMeetNail/vytalcards/internal/models"
)

// DefaultMessengerBaseURL is the WhatsApp click-to-chat endpoint.
const DefaultMessengerBaseURL = "https://wa.me/"

// FallbackError is returned when an export step failed and the user has to
// finish it by hand. It is never retried.
type FallbackError struct {
	Op           string
	Instructions string
	Err          error
}

func (e *FallbackError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *FallbackError) Unwrap() error { return e.Err }

// ScreenshotFallback is shown when a card cannot be rendered.
const ScreenshotFallback = "Image generation is not available right now. Please take a screenshot of the card preview instead."

func artifactKind(kind models.Kind) string {
	if kind == models.KindRecipient {
		return "vytal-request-card"
	}
	return "vytal-donor-card"
}

// DownloadFilename returns <artifact-kind>-<sanitized-name>-<unixmillis>.png.
func DownloadFilename(card models.CardData, now time.Time) string {
	return artifactKind(card.Kind) + "-" + sanitizeName(card.Name) + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ".png"
}

func sanitizeName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "card"
	}
	if len(out) > 48 {
		out = strings.TrimSuffix(out[:48], "-")
	}
	return out
}

// MessengerURL builds a prefilled share link. Spaces are encoded as %20.
func MessengerURL(base, text string) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultMessengerBaseURL
	}
	return base + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// DefaultShareInstructions explains the manual two-step handoff. Messengers
// cannot receive an image and a caption in one programmatic share.
func DefaultShareInstructions() models.ShareInstructions {
	return models.ShareInstructions{
		Title: "Share your card on WhatsApp",
		Steps: []string{
			"Your card image has been downloaded and the share text is copied to your clipboard.",
			"Open WhatsApp, attach the downloaded image, then paste the text as the caption and send.",
		},
		DismissLabel: "Got it",
	}
}

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// Browser opens URLs in the user's browser.
type Browser interface {
	OpenURL(u string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type systemBrowser struct{}

func (systemBrowser) OpenURL(u string) error { return browser.OpenURL(u) }

// Exporter runs the export steps for the command line.
type Exporter struct {
	Clipboard        Clipboard
	Browser          Browser
	OutDir           string
	Out              io.Writer
	MessengerBaseURL string
	Logger           *logging.Logger
}

// NewExporter wires the system clipboard and browser.
func NewExporter(outDir string, out io.Writer) *Exporter {
	return &Exporter{
		Clipboard:        systemClipboard{},
		Browser:          systemBrowser{},
		OutDir:           outDir,
		Out:              out,
		MessengerBaseURL: DefaultMessengerBaseURL,
		Logger:           logging.Default,
	}
}

func (e *Exporter) CopyToClipboard(text string) error {
	if err := e.Clipboard.WriteAll(text); err != nil {
		return &FallbackError{
			Op:           "copy to clipboard",
			Instructions: "Clipboard is not available. Select the share text above and copy it manually.",
			Err:          err,
		}
	}
	return nil
}

// DownloadImage writes png into OutDir under filename. The data goes to a
// temp file first, which is removed if the final rename fails.
func (e *Exporter) DownloadImage(png []byte, filename string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &FallbackError{
			Op:           "save image",
			Instructions: "The image could not be saved. Check that " + e.OutDir + " is writable or take a screenshot of the preview.",
			Err:          err,
		}
	}
	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(e.OutDir, ".vytal-*.png")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(png); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	dest := filepath.Join(e.OutDir, filepath.Base(filename))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fail(err)
	}
	return dest, nil
}

// ShareToMessenger opens the prefilled link. It is best effort: failures are
// logged and the URL is still returned so it can be printed.
func (e *Exporter) ShareToMessenger(text string) string {
	u := MessengerURL(e.MessengerBaseURL, text)
	if err := e.Browser.OpenURL(u); err != nil && e.Logger != nil {
		e.Logger.Warn("Failed to open messenger link", map[string]interface{}{"error": err.Error()})
	}
	return u
}

func (e *Exporter) ShowInstructions() {
	inst := DefaultShareInstructions()
	_, _ = fmt.Fprintf(e.Out, "\n%s\n", inst.Title)
	for i, step := range inst.Steps {
		_, _ = fmt.Fprintf(e.Out, "  %d. %s\n", i+1, step)
	}
	_, _ = fmt.Fprintf(e.Out, "[%s]\n", inst.DismissLabel)
}

// HandoffResult is what the combined export produced.
type HandoffResult struct {
	Path  string
	Share models.ShareContent
}

// Handoff renders card, saves the image, copies the share text and prints the
// instructions overlay. A clipboard failure does not undo the saved image.
func (e *Exporter) Handoff(ctx context.Context, r CardRendererInterface, card models.CardData, now time.Time) (HandoffResult, error) {
	png, err := r.Render(ctx, card)
	if err != nil {
		return HandoffResult{}, err
	}
	share, err := GenerateShareContent(card)
	if err != nil {
		return HandoffResult{}, err
	}
	path, err := e.DownloadImage(png, DownloadFilename(card, now))
	if err != nil {
		return HandoffResult{Share: share}, err
	}
	res := HandoffResult{Path: path, Share: share}
	if err := e.CopyToClipboard(share.Text); err != nil {
		return res, err
	}
	e.ShowInstructions()
	return res, nil
}
