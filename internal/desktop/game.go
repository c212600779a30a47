// Package desktop hosts the visualizer in an ebiten window: the GPU layers
// are drawn offscreen by the conductor and stacked additively on screen.
package desktop

import (
	"errors"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/frame"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

const wheelStep = 0.04

var presetKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7,
}

// imager is a layer backend that draws into an ebiten image.
type imager interface {
	Image() *ebiten.Image
}

// Game implements ebiten.Game over a Core built with kage backends.
type Game struct {
	core   *app.Core
	layers []imager
	w, h   int
	dpr    float64
	inside bool
}

func NewGame(core *app.Core) (*Game, error) {
	g := &Game{core: core}
	for _, l := range choreo.Layers() {
		if im, ok := core.Backend(l).(imager); ok {
			g.layers = append(g.layers, im)
		}
	}
	if len(g.layers) == 0 {
		return nil, errors.New("desktop: no layer draws to an ebiten image")
	}
	return g, nil
}

// Run opens the window and blocks until it closes.
func Run(core *app.Core, title string, width, height, tps int) error {
	g, err := NewGame(core)
	if err != nil {
		return err
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if tps > 0 {
		ebiten.SetTPS(tps)
	}
	err = ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	g.handleKeys()
	g.handleMouse()
	return g.core.Frame(time.Now())
}

func (g *Game) handleKeys() {
	names := stage.PresetNames()
	for i, k := range presetKeys {
		if i < len(names) && inpututil.IsKeyJustPressed(k) {
			_ = g.core.ApplyPreset(names[i])
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.scrollBy(-wheelStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.scrollBy(wheelStep)
	}
}

func (g *Game) handleMouse() {
	cond := g.core.Cond
	cx, cy := ebiten.CursorPosition()
	nx, ny, in := normalize(cx, cy, g.w, g.h)
	switch {
	case in:
		g.core.Events.EmitPointer(frame.PointerEvent{X: nx, Y: ny, Inside: true})
		g.inside = true
	case g.inside:
		g.core.Events.EmitPointer(frame.PointerEvent{})
		g.inside = false
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		cond.TiltEngage()
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		cond.TiltRelease()
	}
	if in {
		cond.TiltTo(nx, ny, math.Min(1, math.Hypot(nx, ny)))
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		g.scrollBy(-dy * wheelStep)
	}
}

func (g *Game) scrollBy(d float64) {
	g.core.Cond.SetScrollProgress(g.core.Cond.ScrollProgress() + d)
}

func (g *Game) Draw(screen *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	for _, l := range g.layers {
		img := l.Image()
		if img == nil {
			continue
		}
		iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
		op := &ebiten.DrawImageOptions{Blend: ebiten.BlendLighter}
		op.GeoM.Scale(float64(sw)/float64(iw), float64(sh)/float64(ih))
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, op)
	}
}

// Layout reports the window box to the renderers; each sizes its own
// backing store from it and its DPR limit.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	dpr := ebiten.Monitor().DeviceScaleFactor()
	if outsideWidth != g.w || outsideHeight != g.h || dpr != g.dpr {
		g.w, g.h, g.dpr = outsideWidth, outsideHeight, dpr
		g.core.Surf.SetDPR(dpr)
		g.core.Resize(float64(outsideWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}

// normalize maps a cursor position to [-1,1]², reporting whether it lies
// inside the w×h box.
func normalize(x, y, w, h int) (nx, ny float64, inside bool) {
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x >= w || y >= h {
		return 0, 0, false
	}
	nx = (float64(x)+0.5)/float64(w)*2 - 1
	ny = (float64(y)+0.5)/float64(h)*2 - 1
	return nx, ny, true
}
