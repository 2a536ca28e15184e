package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/singleflight"

	"github.com/HammerMeetNail/vytalcards/internal/models"
)

const (
	CardWidth    = 400
	CardHeight   = 500
	DefaultScale = 3
	MaxScale     = 4

	messageMaxLines = 4
)

// ErrRenderUnavailable means the drawing surface could not be set up or
// encoded. Callers should offer a manual screenshot instead.
var ErrRenderUnavailable = errors.New("card rendering unavailable")

// RenderOptions controls card image rendering.
type RenderOptions struct {
	Scale int
	Brand string
}

func (o RenderOptions) scale() int {
	if o.Scale < 1 || o.Scale > MaxScale {
		return DefaultScale
	}
	return o.Scale
}

var (
	fontOnce      sync.Once
	parsedFonts   map[fontWeight]*opentype.Font
	parsedFontErr error
)

type fontWeight int

const (
	weightRegular fontWeight = iota
	weightBold
)

var (
	textDark   = color.RGBA{0x1F, 0x29, 0x37, 0xFF}
	textMuted  = color.RGBA{0x6B, 0x72, 0x80, 0xFF}
	white      = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	cellBorder = color.RGBA{0xE5, 0xE7, 0xEB, 0xFF}
)

// RenderCardPNG draws card as a PNG at CardWidth x CardHeight logical pixels
// times the configured scale.
func RenderCardPNG(card models.CardData, opts RenderOptions) ([]byte, error) {
	view, err := ProjectCard(card, opts.Brand)
	if err != nil {
		return nil, err
	}
	img, _, err := paintCard(view, opts.scale())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRenderUnavailable, err)
	}
	return buf.Bytes(), nil
}

// cardPainter draws in logical coordinates and records every string it
// paints, in order.
type cardPainter struct {
	img   *image.RGBA
	scale int
	faces map[faceKey]font.Face
	texts []string
}

type faceKey struct {
	weight fontWeight
	size   float64
}

func paintCard(view CardView, scale int) (*image.RGBA, []string, error) {
	p := &cardPainter{
		img:   image.NewRGBA(image.Rect(0, 0, CardWidth*scale, CardHeight*scale)),
		scale: scale,
		faces: map[faceKey]font.Face{},
	}
	defer p.close()

	passes := []func(CardView) error{
		p.drawBackground,
		p.drawHeader,
		p.drawBody,
		p.drawContact,
		p.drawFooter,
		p.drawWatermark,
	}
	for _, pass := range passes {
		if err := pass(view); err != nil {
			return nil, nil, err
		}
	}
	return p.img, p.texts, nil
}

func (p *cardPainter) close() {
	for _, f := range p.faces {
		_ = f.Close()
	}
}

func (p *cardPainter) face(weight fontWeight, size float64) (font.Face, error) {
	key := faceKey{weight: weight, size: size}
	if f, ok := p.faces[key]; ok {
		return f, nil
	}
	f, err := newFontFace(weight, size*float64(p.scale))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}
	p.faces[key] = f
	return f, nil
}

func (p *cardPainter) rect(x0, y0, x1, y1 int) image.Rectangle {
	s := p.scale
	return image.Rect(x0*s, y0*s, x1*s, y1*s)
}

func (p *cardPainter) fill(r image.Rectangle, clr color.Color) {
	draw.Draw(p.img, r, image.NewUniform(clr), image.Point{}, draw.Over)
}

func (p *cardPainter) fillRounded(r image.Rectangle, radius int, clr color.Color) {
	mask := &roundedRect{r: r, radius: radius * p.scale}
	draw.DrawMask(p.img, r, image.NewUniform(clr), image.Point{}, mask, r.Min, draw.Over)
}

func (p *cardPainter) fillCircle(cx, cy, radius int, clr color.Color) {
	s := p.scale
	c := &circle{p: image.Pt(cx*s, cy*s), r: radius * s}
	draw.DrawMask(p.img, c.Bounds(), image.NewUniform(clr), image.Point{}, c, c.Bounds().Min, draw.Over)
}

// text draws s with its baseline at logical (x, y).
func (p *cardPainter) text(face font.Face, x, y int, s string, clr color.Color) {
	if s == "" {
		return
	}
	drawText(p.img, face, x*p.scale, y*p.scale, s, clr)
	p.texts = append(p.texts, s)
}

func (p *cardPainter) textRight(face font.Face, right, y int, s string, clr color.Color) {
	if s == "" {
		return
	}
	w := font.MeasureString(face, s).Ceil()
	drawText(p.img, face, right*p.scale-w, y*p.scale, s, clr)
	p.texts = append(p.texts, s)
}

func (p *cardPainter) textCentered(face font.Face, cx, y int, s string, clr color.Color) {
	if s == "" {
		return
	}
	w := font.MeasureString(face, s).Ceil()
	drawText(p.img, face, cx*p.scale-w/2, y*p.scale, s, clr)
	p.texts = append(p.texts, s)
}

// fit clamps s to a single line of maxWidth logical pixels.
func (p *cardPainter) fit(face font.Face, s string, maxWidth int) string {
	return clampLines(face, []string{s}, 1, maxWidth*p.scale)[0]
}

func (p *cardPainter) drawBackground(view CardView) error {
	p.fill(p.img.Bounds(), white)
	drawBorder(p.img, p.img.Bounds(), 2*p.scale, view.Theme.Primary)
	return nil
}

func (p *cardPainter) drawHeader(view CardView) error {
	const headerHeight = 90
	top, bottom := view.Theme.Primary, view.Theme.GradientEnd
	rows := headerHeight * p.scale
	for y := 0; y < rows; y++ {
		t := float64(y) / float64(rows-1)
		line := image.Rect(0, y, CardWidth*p.scale, y+1)
		draw.Draw(p.img, line, image.NewUniform(lerpColor(top, bottom, t)), image.Point{}, draw.Src)
	}

	p.fillCircle(42, 45, 24, color.RGBA{0xFF, 0xFF, 0xFF, 0x40})
	iconFace, err := p.face(weightBold, 22)
	if err != nil {
		return err
	}
	p.textCentered(iconFace, 42, 53, strings.ToUpper(truncateRunes(view.Theme.Label, 1)), white)

	titleFace, err := p.face(weightBold, 18)
	if err != nil {
		return err
	}
	headingFace, err := p.face(weightRegular, 12)
	if err != nil {
		return err
	}
	brandFace, err := p.face(weightBold, 12)
	if err != nil {
		return err
	}
	p.text(titleFace, 78, 42, view.Title, white)
	p.text(headingFace, 78, 62, p.fit(headingFace, view.Heading, 230), white)
	p.textRight(brandFace, 384, 24, view.Brand, white)
	return nil
}

func (p *cardPainter) drawBody(view CardView) error {
	nameFace, err := p.face(weightBold, 20)
	if err != nil {
		return err
	}
	smallFace, err := p.face(weightRegular, 11)
	if err != nil {
		return err
	}
	badgeFace, err := p.face(weightBold, 14)
	if err != nil {
		return err
	}
	bodyFace, err := p.face(weightRegular, 12)
	if err != nil {
		return err
	}
	labelFace, err := p.face(weightRegular, 10)
	if err != nil {
		return err
	}
	valueFace, err := p.face(weightBold, 12)
	if err != nil {
		return err
	}

	p.text(nameFace, 24, 122, p.fit(nameFace, view.Name, 260), textDark)
	p.text(smallFace, 24, 140, p.fit(smallFace, "Location: "+view.Location, 260), textMuted)

	badge := p.rect(296, 102, 376, 132)
	p.fillRounded(badge, 15, view.Theme.Primary)
	p.textCentered(badgeFace, 336, 122, p.fit(badgeFace, view.Badge, 72), white)

	// Message is capped at messageMaxLines so it never runs into the grid.
	lines := wrapText(bodyFace, view.Message, 352*p.scale)
	lines = clampLines(bodyFace, lines, messageMaxLines, 352*p.scale)
	for i, line := range lines {
		p.text(bodyFace, 24, 166+i*16, line, textDark)
	}

	for i, cell := range view.Grid {
		x := 24 + (i%2)*180
		y := 234 + (i/2)*50
		r := p.rect(x, y, x+172, y+44)
		p.fillRounded(r, 6, view.Theme.Background)
		drawBorder(p.img, r, p.scale, cellBorder)
		p.text(labelFace, x+10, y+16, p.fit(labelFace, cell.Label, 152), textMuted)
		p.text(valueFace, x+10, y+34, p.fit(valueFace, cell.Value, 152), textDark)
	}
	return nil
}

func (p *cardPainter) drawContact(view CardView) error {
	box := p.rect(24, 342, 376, 446)
	p.fillRounded(box, 8, view.Theme.Background)
	drawBorder(p.img, box, p.scale, view.Theme.Primary)

	headFace, err := p.face(weightBold, 12)
	if err != nil {
		return err
	}
	lineFace, err := p.face(weightRegular, 11)
	if err != nil {
		return err
	}

	p.text(headFace, 36, 362, "Contact", view.Theme.Primary)
	lines := []string{view.ContactPerson, "Phone: " + view.PrimaryPhone}
	if view.SecondaryPhone != "" {
		lines = append(lines, "Alt: "+view.SecondaryPhone)
	}
	if view.Relationship != "" {
		lines = append(lines, "Relationship: "+view.Relationship)
	}
	for i, line := range lines {
		p.text(lineFace, 36, 382+i*16, p.fit(lineFace, line, 232), textDark)
	}

	p.drawQR(view, p.rect(290, 352, 366, 428))
	return nil
}

// drawQR draws a scannable tel: code when there is a phone number and falls
// back to a decorative pattern otherwise.
func (p *cardPainter) drawQR(view CardView, r image.Rectangle) {
	p.fill(r, white)
	if view.QRPayload != "" {
		if q, err := qrcode.New(view.QRPayload, qrcode.Medium); err == nil {
			q.DisableBorder = true
			scaled := imaging.Resize(q.Image(256), r.Dx(), r.Dy(), imaging.NearestNeighbor)
			draw.Draw(p.img, r, scaled, image.Point{}, draw.Over)
			return
		}
	}
	drawQRPlaceholder(p.img, r, view.CardID, textDark)
}

func (p *cardPainter) drawFooter(view CardView) error {
	p.fill(p.rect(24, 458, 376, 459), cellBorder)

	brandFace, err := p.face(weightBold, 12)
	if err != nil {
		return err
	}
	idFace, err := p.face(weightRegular, 10)
	if err != nil {
		return err
	}
	p.text(brandFace, 24, 482, "♥ "+view.Brand, view.Theme.Primary)
	p.textRight(idFace, 376, 482, "ID: "+view.CardID, textMuted)
	return nil
}

func (p *cardPainter) drawWatermark(view CardView) error {
	face, err := p.face(weightBold, 56)
	if err != nil {
		return err
	}
	mark := strings.ToUpper(view.Brand)
	w := font.MeasureString(face, mark).Ceil()
	h := face.Metrics().Height.Ceil()

	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	drawText(layer, face, 0, face.Metrics().Ascent.Ceil(), mark, color.NRGBA{R: view.Theme.Primary.R, G: view.Theme.Primary.G, B: view.Theme.Primary.B, A: 0x18})

	const angle = -30 * math.Pi / 180
	sin, cos := math.Sincos(angle)
	sx, sy := float64(w)/2, float64(h)/2
	dx, dy := float64(p.img.Bounds().Dx())/2, float64(p.img.Bounds().Dy())/2
	m := f64.Aff3{
		cos, -sin, dx - (cos*sx - sin*sy),
		sin, cos, dy - (sin*sx + cos*sy),
	}
	xdraw.BiLinear.Transform(p.img, m, layer, layer.Bounds(), xdraw.Over, nil)
	p.texts = append(p.texts, mark)
	return nil
}

func newFontFace(weight fontWeight, size float64) (font.Face, error) {
	fontOnce.Do(func() {
		parsedFonts = map[fontWeight]*opentype.Font{}
		for w, ttf := range map[fontWeight][]byte{weightRegular: goregular.TTF, weightBold: gobold.TTF} {
			f, err := opentype.Parse(ttf)
			if err != nil {
				parsedFontErr = err
				return
			}
			parsedFonts[w] = f
		}
	})
	if parsedFontErr != nil {
		return nil, fmt.Errorf("parse font: %w", parsedFontErr)
	}
	face, err := opentype.NewFace(parsedFonts[weight], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	return face, nil
}

func drawText(img draw.Image, face font.Face, x, y int, text string, clr color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawBorder(img draw.Image, rect image.Rectangle, width int, clr color.Color) {
	border := image.NewUniform(clr)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), border, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), border, image.Point{}, draw.Src)
}

func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	d := &font.Drawer{Face: face}
	lines := []string{}
	current := words[0]

	for _, word := range words[1:] {
		test := current + " " + word
		if d.MeasureString(test).Ceil() <= maxWidth {
			current = test
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)
	return lines
}

// clampLines keeps at most maxLines lines and shortens the last one (or any
// single over-wide line) with an ellipsis.
func clampLines(face font.Face, lines []string, maxLines int, maxWidth int) []string {
	if len(lines) == 0 {
		return lines
	}
	d := &font.Drawer{Face: face}
	if len(lines) <= maxLines {
		last := lines[len(lines)-1]
		if d.MeasureString(last).Ceil() <= maxWidth {
			return lines
		}
	} else {
		lines = lines[:maxLines]
	}
	last := lines[len(lines)-1]
	ellipsis := "..."

	runes := []rune(last)
	for d.MeasureString(string(runes)+ellipsis).Ceil() > maxWidth && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	lines[len(lines)-1] = strings.TrimSpace(string(runes)) + ellipsis
	return lines
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xFF}
}

// drawQRPlaceholder paints a QR-looking pattern seeded by id.
func drawQRPlaceholder(img draw.Image, r image.Rectangle, id string, clr color.Color) {
	const modules = 21
	cell := r.Dx() / modules
	if cell == 0 {
		return
	}
	seed, _ := strconv.ParseUint(strings.TrimPrefix(id, "VYT-"), 10, 64)
	seed |= 1
	src := image.NewUniform(clr)
	for row := 0; row < modules; row++ {
		for col := 0; col < modules; col++ {
			on := finderModule(row, col, modules)
			if !on && !inFinderZone(row, col, modules) {
				seed ^= seed << 13
				seed ^= seed >> 7
				seed ^= seed << 17
				on = seed&1 == 1
			}
			if on {
				x, y := r.Min.X+col*cell, r.Min.Y+row*cell
				draw.Draw(img, image.Rect(x, y, x+cell, y+cell), src, image.Point{}, draw.Src)
			}
		}
	}
}

func inFinderZone(row, col, n int) bool {
	return (row < 8 && col < 8) || (row < 8 && col >= n-8) || (row >= n-8 && col < 8)
}

func finderModule(row, col, n int) bool {
	for _, o := range [][2]int{{0, 0}, {0, n - 7}, {n - 7, 0}} {
		r, c := row-o[0], col-o[1]
		if r < 0 || r > 6 || c < 0 || c > 6 {
			continue
		}
		if r == 0 || r == 6 || c == 0 || c == 6 || (r >= 2 && r <= 4 && c >= 2 && c <= 4) {
			return true
		}
	}
	return false
}

type circle struct {
	p image.Point
	r int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.p.X-c.r, c.p.Y-c.r, c.p.X+c.r, c.p.Y+c.r)
}

func (c *circle) At(x, y int) color.Color {
	xx, yy, rr := float64(x-c.p.X)+0.5, float64(y-c.p.Y)+0.5, float64(c.r)
	if xx*xx+yy*yy < rr*rr {
		return color.Alpha{A: 255}
	}
	return color.Alpha{A: 0}
}

type roundedRect struct {
	r      image.Rectangle
	radius int
}

func (m *roundedRect) ColorModel() color.Model { return color.AlphaModel }

func (m *roundedRect) Bounds() image.Rectangle { return m.r }

func (m *roundedRect) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(m.r) {
		return color.Alpha{A: 0}
	}
	rad := m.radius
	if limit := minInt(m.r.Dx(), m.r.Dy()) / 2; rad > limit {
		rad = limit
	}
	cx, cy := x, y
	switch {
	case x < m.r.Min.X+rad:
		cx = m.r.Min.X + rad
	case x >= m.r.Max.X-rad:
		cx = m.r.Max.X - rad - 1
	}
	switch {
	case y < m.r.Min.Y+rad:
		cy = m.r.Min.Y + rad
	case y >= m.r.Max.Y-rad:
		cy = m.r.Max.Y - rad - 1
	}
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > rad*rad {
		return color.Alpha{A: 0}
	}
	return color.Alpha{A: 255}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// CardRendererInterface is what the HTTP layer needs from the renderer.
type CardRendererInterface interface {
	Render(ctx context.Context, card models.CardData) ([]byte, error)
	Thumbnail(ctx context.Context, card models.CardData, maxWidth int) ([]byte, error)
}

// CardRenderer renders PNGs with fixed options and collapses concurrent
// renders of the same card into one.
type CardRenderer struct {
	opts  RenderOptions
	group singleflight.Group
}

func NewCardRenderer(opts RenderOptions) *CardRenderer {
	return &CardRenderer{opts: opts}
}

// Render validates card and returns its PNG. Invalid cards never reach the
// drawing code.
func (r *CardRenderer) Render(ctx context.Context, card models.CardData) ([]byte, error) {
	if errs := ValidateCard(card); len(errs) > 0 {
		return nil, errs
	}
	key := CardFingerprint(card) + ":" + strconv.Itoa(r.opts.scale())
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return RenderCardPNG(card, r.opts)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Thumbnail renders card and scales it to fit within maxWidth pixels wide.
func (r *CardRenderer) Thumbnail(ctx context.Context, card models.CardData, maxWidth int) ([]byte, error) {
	full, err := r.Render(ctx, card)
	if err != nil {
		return nil, err
	}
	src, err := png.Decode(bytes.NewReader(full))
	if err != nil {
		return nil, fmt.Errorf("%w: decode png: %v", ErrRenderUnavailable, err)
	}
	if maxWidth <= 0 || maxWidth >= src.Bounds().Dx() {
		return full, nil
	}
	thumb := imaging.Resize(src, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRenderUnavailable, err)
	}
	return buf.Bytes(), nil
}
