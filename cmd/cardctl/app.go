package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/HammerMeetNail/vytalcards/internal/models"
	"github.com/HammerMeetNail/vytalcards/internal/services"
)

type appDeps struct {
	out         io.Writer
	errOut      io.Writer
	newExporter func(outDir string, out io.Writer) *services.Exporter
	now         func() time.Time
}

func defaultExporter(outDir string, out io.Writer) *services.Exporter {
	return services.NewExporter(outDir, out)
}

func newApp(d appDeps) *cli.App {
	if d.now == nil {
		d.now = time.Now
	}

	inFlag := &cli.StringFlag{
		Name:     "in",
		Aliases:  []string{"i"},
		Usage:    "Card JSON file, or - for stdin",
		Required: true,
	}
	outFlag := &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Directory the PNG is written to",
		Value:   ".",
	}
	brandFlag := &cli.StringFlag{
		Name:    "brand",
		Usage:   "Brand mark drawn on the card",
		Value:   services.DefaultBrand,
		EnvVars: []string{"RENDER_BRAND"},
	}
	messengerFlag := &cli.StringFlag{
		Name:    "messenger-url",
		Usage:   "Base URL of the messenger share link",
		Value:   services.DefaultMessengerBaseURL,
		EnvVars: []string{"MESSENGER_BASE_URL"},
	}

	return &cli.App{
		Name:      "cardctl",
		Usage:     "Render and share Vytal donor and request cards",
		Writer:    d.out,
		ErrWriter: d.errOut,
		Commands: []*cli.Command{
			{
				Name:  "defaults",
				Usage: "Print the sample card for a category",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "category",
						Aliases: []string{"c"},
						Usage:   "blood, organs, fundraiser, medicines or supplies",
						Value:   string(models.DefaultCategory),
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "donor or recipient",
						Value: string(models.KindDonor),
					},
				},
				Action: func(c *cli.Context) error {
					state, err := services.NewCardState(models.Category(c.String("category")))
					if err != nil {
						return err
					}
					kind := models.Kind(c.String("kind"))
					if err := state.Update(models.CardPatch{Kind: &kind}); err != nil {
						return err
					}
					enc := json.NewEncoder(d.out)
					enc.SetIndent("", "  ")
					return enc.Encode(state.Card())
				},
			},
			{
				Name:  "render",
				Usage: "Validate a card and write its PNG",
				Flags: []cli.Flag{
					inFlag,
					outFlag,
					brandFlag,
					&cli.IntFlag{
						Name:  "scale",
						Usage: "Pixel density, 1 to 4",
						Value: services.DefaultScale,
					},
					&cli.IntFlag{
						Name:  "width",
						Usage: "Scale the image down to this width; 0 keeps full size",
					},
				},
				Action: func(c *cli.Context) error {
					card, err := readCard(c.String("in"), os.Stdin)
					if err != nil {
						return err
					}
					renderer := services.NewCardRenderer(services.RenderOptions{
						Scale: c.Int("scale"),
						Brand: c.String("brand"),
					})
					var png []byte
					if w := c.Int("width"); w > 0 {
						png, err = renderer.Thumbnail(c.Context, card, w)
					} else {
						png, err = renderer.Render(c.Context, card)
					}
					if err != nil {
						return describeCardError(err)
					}
					ex := d.newExporter(c.String("out"), d.out)
					path, err := ex.DownloadImage(png, services.DownloadFilename(card, d.now()))
					if err != nil {
						return reportFallback(d.errOut, err)
					}
					_, _ = fmt.Fprintln(d.out, path)
					return nil
				},
			},
			{
				Name:  "share",
				Usage: "Print the share text for a card",
				Flags: []cli.Flag{
					inFlag,
					messengerFlag,
					&cli.BoolFlag{Name: "copy", Usage: "Copy the text to the clipboard"},
					&cli.BoolFlag{Name: "open", Usage: "Open the prefilled messenger link"},
				},
				Action: func(c *cli.Context) error {
					card, err := readCard(c.String("in"), os.Stdin)
					if err != nil {
						return err
					}
					if errs := services.ValidateCard(card); len(errs) > 0 {
						return describeCardError(errs)
					}
					share, err := services.GenerateShareContent(card)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(d.out, share.Text)

					ex := d.newExporter("", d.out)
					ex.MessengerBaseURL = c.String("messenger-url")
					if c.Bool("copy") {
						if err := ex.CopyToClipboard(share.Text); err != nil {
							_ = reportFallback(d.errOut, err)
						} else {
							_, _ = fmt.Fprintln(d.errOut, "Share text copied to clipboard.")
						}
					}
					if c.Bool("open") {
						_, _ = fmt.Fprintln(d.errOut, ex.ShareToMessenger(share.Text))
					} else {
						_, _ = fmt.Fprintln(d.errOut, services.MessengerURL(ex.MessengerBaseURL, share.Text))
					}
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Save the image, copy the share text and show the handoff steps",
				Flags: []cli.Flag{
					inFlag,
					outFlag,
					brandFlag,
					messengerFlag,
					&cli.IntFlag{
						Name:  "scale",
						Usage: "Pixel density, 1 to 4",
						Value: services.DefaultScale,
					},
				},
				Action: func(c *cli.Context) error {
					card, err := readCard(c.String("in"), os.Stdin)
					if err != nil {
						return err
					}
					renderer := services.NewCardRenderer(services.RenderOptions{
						Scale: c.Int("scale"),
						Brand: c.String("brand"),
					})
					ex := d.newExporter(c.String("out"), d.out)
					ex.MessengerBaseURL = c.String("messenger-url")

					res, err := ex.Handoff(c.Context, renderer, card, d.now())
					if res.Path != "" {
						_, _ = fmt.Fprintln(d.out, res.Path)
					}
					if err != nil {
						var fb *services.FallbackError
						if !errors.As(err, &fb) {
							return describeCardError(err)
						}
						if res.Path == "" {
							return reportFallback(d.errOut, err)
						}
						// The image is saved; only the copy step needs doing by hand.
						_, _ = fmt.Fprintln(d.out, res.Share.Text)
						_ = reportFallback(d.errOut, err)
						ex.ShowInstructions()
					}
					return nil
				},
			},
		},
	}
}

// readCard loads a card from path, or from stdin when path is "-". Enum
// values are checked and inactive sub-records dropped.
func readCard(path string, stdin io.Reader) (models.CardData, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return models.CardData{}, fmt.Errorf("opening card: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var card models.CardData
	if err := json.NewDecoder(r).Decode(&card); err != nil {
		return models.CardData{}, fmt.Errorf("decoding card: %w", err)
	}
	state, err := services.CardStateFrom(card)
	if err != nil {
		return models.CardData{}, err
	}
	return state.Card(), nil
}

func describeCardError(err error) error {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return fmt.Errorf("card is not ready to export: %w", err)
	}
	if errors.Is(err, services.ErrRenderUnavailable) {
		return fmt.Errorf("%s: %w", services.ScreenshotFallback, err)
	}
	return err
}

// reportFallback prints manual instructions for a failed export step.
func reportFallback(w io.Writer, err error) error {
	var fb *services.FallbackError
	if errors.As(err, &fb) {
		_, _ = fmt.Fprintf(w, "%s: %v\n%s\n", fb.Op, fb.Err, fb.Instructions)
	}
	return err
}
