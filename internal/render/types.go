package render

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

// Color is premultiplied linear RGBA.
type Color struct{ R, G, B, A float32 }

// ErrUnsupported is returned by a Backend that has no usable graphics context.
var ErrUnsupported = errors.New("graphics context unavailable")

// Surface is the mount target a renderer sizes itself against.
type Surface interface {
	// CSSSize is the layout box in device-independent units.
	CSSSize() (w, h float64)
	DevicePixelRatio() float64
}

// Location is a resolved uniform handle.
type Location int

// Backend is the graphics context bound to a surface.
type Backend interface {
	// Compile builds the lattice program from fragment source.
	Compile(src []byte) (Program, error)
	// Viewport (re)allocates the backing store.
	Viewport(w, h int)
	// Clear fills the backing store with transparent black.
	Clear()
	// DrawQuad runs p over the whole viewport as a 4-vertex strip.
	DrawQuad(p Program)
}

// Program is a compiled fragment program with settable float uniforms.
type Program interface {
	Uniform(name string) (Location, bool)
	Set1f(loc Location, v float32)
	Set2f(loc Location, x, y float32)
}

// Options configure one renderer.
type Options struct {
	Name       string
	Initial    params.Partial
	LerpFactor float64
	DPRLimit   float64
	Source     []byte
	Logger     *zerolog.Logger
}

// StaticSurface is a fixed-size Surface, used by headless hosts and tests.
type StaticSurface struct {
	W, H float64
	DPR  float64
}

func (s *StaticSurface) CSSSize() (float64, float64) { return s.W, s.H }

func (s *StaticSurface) DevicePixelRatio() float64 {
	if s.DPR <= 0 {
		return 1
	}
	return s.DPR
}
