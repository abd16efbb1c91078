package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/config"
	"github.com/cbegin/musetheory-go/internal/keyboard"
	"github.com/cbegin/musetheory-go/internal/logging"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/theory"
	"github.com/cbegin/musetheory-go/internal/voice"
)

const (
	windowW    = 1100
	windowH    = 480
	minWindowW = 760
	minWindowH = 400

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale
)

var (
	bgColor       = color.RGBA{192, 192, 192, 255}
	panelColor    = color.RGBA{192, 192, 192, 255}
	borderColor   = color.RGBA{128, 128, 128, 255}
	bevelLight    = color.RGBA{255, 255, 255, 255}
	bevelDarker   = color.RGBA{64, 64, 64, 255}
	sunkenBgColor = color.RGBA{24, 24, 32, 255}

	naturalKeyColor = color.RGBA{245, 245, 245, 255}
	raisedKeyColor  = color.RGBA{24, 24, 24, 255}
	litKeyColor     = color.RGBA{255, 200, 0, 255}
	litRaisedColor  = color.RGBA{210, 150, 0, 255}
)

type game struct {
	player     *musetheory.Player
	log        logrus.FieldLogger
	rng        *rand.Rand
	highlight  keyboard.HighlightSet
	title      string
	instrument int
	length     notes.Length

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(cfg config.Config, log logrus.FieldLogger, query string) (*game, error) {
	pl, err := musetheory.NewPlayer(cfg.SampleRate, musetheory.WithBPM(cfg.BPM), musetheory.WithLogger(log))
	if err != nil {
		return nil, err
	}
	g := &game{
		player:    pl,
		log:       log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		highlight: keyboard.NewHighlightSet(),
		length:    notes.DefaultLength,
		status:    "Click keys to build a chord, or press Lucky",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}
	if query != "" {
		g.analyze(query)
	}
	return g, nil
}

func (g *game) Update() error {
	g.handleMouse()
	g.handleKeys()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.title)
	g.drawText(screen, shortenEnd(g.titleText(), (l.title.Dx()-16)/charW), l.title.Min.X+8, l.title.Min.Y+8)
	g.drawKeyboard(screen, l.keys)
	g.drawButton(screen, l.instrument, g.instrumentLabel())
	g.drawButton(screen, l.play, "Play")
	g.drawButton(screen, l.lucky, "Lucky")
	g.drawButton(screen, l.clear, "Clear")
	g.drawSunkenPanel(screen, l.status)
	msg := g.status
	if g.statusErr {
		msg = "! " + msg
	}
	g.drawText(screen, shortenEnd(msg, (l.status.Dx()-16)/charW), l.status.Min.X+8, l.status.Min.Y+6)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.player.Close() }

type uiLayout struct {
	title, keys, instrument, play, lucky, clear, status image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 12
	w, h := g.viewW, g.viewH
	title := image.Rect(pad, pad, w-pad, pad+lineH+16)
	status := image.Rect(pad, h-pad-lineH-12, w-pad, h-pad)
	buttonsY := status.Min.Y - pad - 44
	bw := (w - pad*5) / 4
	button := func(i int) image.Rectangle {
		x := pad + i*(bw+pad)
		return image.Rect(x, buttonsY, x+bw, buttonsY+44)
	}
	keys := image.Rect(pad, title.Max.Y+pad, w-pad, buttonsY-pad)
	return uiLayout{
		title:      title,
		keys:       keys,
		instrument: button(0),
		play:       button(1),
		lucky:      button(2),
		clear:      button(3),
		status:     status,
	}
}

func (g *game) handleMouse() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	switch {
	case pointInRect(mx, my, l.instrument):
		g.instrument = (g.instrument + 1) % len(voice.Instruments)
		g.setStatus("Instrument: " + string(voice.Instruments[g.instrument]))
	case pointInRect(mx, my, l.play):
		g.play()
	case pointInRect(mx, my, l.lucky):
		g.analyze(theory.Lucky(g.rng))
		g.play()
	case pointInRect(mx, my, l.clear):
		g.highlight = keyboard.NewHighlightSet()
		g.title = ""
		g.setStatus("Cleared")
	case pointInRect(mx, my, l.keys):
		rects := keyboard.Geometry(keyboard.Layout(g.highlight), l.keys)
		if slot, ok := keyboard.HitTest(rects, image.Pt(mx, my)); ok {
			lit := g.highlight.Toggle(slot.Note)
			g.title = ""
			if lit {
				g.setStatus(slot.Note + " on")
			} else {
				g.setStatus(slot.Note + " off")
			}
		}
	}
}

func (g *game) handleKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.play()
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		g.analyze(theory.Lucky(g.rng))
	}
}

func (g *game) analyze(query string) {
	a, err := theory.Analyze(query)
	if err != nil {
		g.log.WithError(err).WithField("query", query).Warn("analysis failed")
		g.setError(theory.FailureMessage)
		return
	}
	g.highlight = keyboard.NewHighlightSet(a.Notes...)
	g.title = a.Name
	g.setStatus(a.Description)
}

// play sounds the lit notes in keyboard order.
func (g *game) play() {
	var names []string
	for _, s := range keyboard.Layout(g.highlight)[:len(notes.Alphabet)] {
		if s.Highlighted {
			names = append(names, s.Note)
		}
	}
	if len(names) == 0 {
		g.setStatus("Nothing highlighted")
		return
	}
	in := voice.Instruments[g.instrument]
	end, err := g.player.Play(context.Background(), names, in, g.length)
	if err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus(fmt.Sprintf("Playing %s on %s (%.1fs)", strings.Join(names, " "), in, end.Seconds()))
}

func (g *game) titleText() string {
	if g.title != "" {
		return g.title
	}
	lit := keyboard.Highlighted(keyboard.Layout(g.highlight)[:len(notes.Alphabet)])
	if len(lit) == 0 {
		return "musetheory"
	}
	names := make([]string, len(lit))
	for i, s := range lit {
		names[i] = s.Note
	}
	return strings.Join(names, " ")
}

func (g *game) instrumentLabel() string {
	in := string(voice.Instruments[g.instrument])
	return strings.ToUpper(in[:1]) + in[1:]
}

func (g *game) drawKeyboard(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	inner := rect.Inset(4)
	for _, kr := range keyboard.Geometry(keyboard.Layout(g.highlight), inner) {
		r := kr.Rect
		fill := naturalKeyColor
		switch {
		case kr.Slot.Raised && kr.Slot.Highlighted:
			fill = litRaisedColor
		case kr.Slot.Raised:
			fill = raisedKeyColor
		case kr.Slot.Highlighted:
			fill = litKeyColor
		}
		ebitenutil.DrawRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), fill)
		if kr.Slot.Raised {
			drawBorder(screen, r)
			continue
		}
		drawSunkenBorder(screen, r)
		if kr.Slot.Highlighted {
			x := r.Min.X + (r.Dx()-len(kr.Slot.Note)*charW)/2
			g.drawText(screen, kr.Slot.Note, x, r.Max.Y-lineH-8)
		}
	}
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws a sunken bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	cfg, err := config.FromEnv(config.Default(), nil)
	if err != nil {
		log.Fatal(err)
	}
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "output sample rate")
	flag.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "tempo note lengths are measured against")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	query := flag.String("query", "", `scale or chord to show at start, e.g. "A Minor Pentatonic"`)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}

	g, err := newGame(cfg, logger, *query)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("musetheory")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
