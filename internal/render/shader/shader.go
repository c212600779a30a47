// Package shader holds the lattice fragment program: the Kage source run by
// the GPU backend and an equivalent Go kernel used by the CPU backend.
package shader

import (
	_ "embed"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

//go:embed lattice.kage
var Source []byte

// EntryPoint is the function every program must define.
const EntryPoint = "Fragment"

const (
	UniformTime       = "Time"
	UniformResolution = "Resolution"
)

const (
	projectionK = 2.5
	gamma       = 2.2
	value       = 0.95
)

// Uniforms are the inputs of one frame.
type Uniforms struct {
	TimeMS        float64
	Width, Height float64
	P             params.Set
}

// Frame caches everything that does not vary per pixel.
type Frame struct {
	u         Uniforms
	half      [2]float64
	invMin    float64
	scale     float64
	z0, w0    float64
	cXW, sXW  float64
	cYW, sYW  float64
	cZW, sZW  float64
	freq      float64
	r, g, b   float64
	parallax  float64
	chaos     float64
	intensity float64
}

// Prepare evaluates the per-frame terms.
func Prepare(u Uniforms) *Frame {
	p := u.P
	t := u.TimeMS * 0.0001 * p[params.Speed]
	f := &Frame{
		u:         u,
		half:      [2]float64{u.Width * 0.5, u.Height * 0.5},
		scale:     2.6 + p[params.Geometry]*0.35,
		z0:        math.Sin(t*3.1) * p[params.Morph],
		w0:        math.Cos(t*2.4) * p[params.Morph],
		freq:      p[params.GridDensity] * 0.08,
		parallax:  p[params.Parallax] * 0.35,
		chaos:     p[params.Chaos],
		intensity: p[params.Intensity],
	}
	if m := math.Min(u.Width, u.Height); m > 0 {
		f.invMin = 1 / m
	}
	f.sXW, f.cXW = math.Sincos(p[params.Rot4dXW] + t*0.35)
	f.sYW, f.cYW = math.Sincos(p[params.Rot4dYW] + t*0.28)
	f.sZW, f.cZW = math.Sincos(p[params.Rot4dZW] + t*0.22)
	f.r, f.g, f.b = HSV(p[params.Hue], p[params.Saturation], value)
	return f
}

// At shades the fragment at (x, y), measured from the bottom-left corner
// of the viewport. The result is premultiplied.
func (f *Frame) At(x, y float64) (r, g, b, a float32) {
	u := (x - f.half[0]) * f.invMin
	v := (y - f.half[1]) * f.invMin

	px, py, pz, pw := u*f.scale, v*f.scale, f.z0, f.w0
	px, pw = f.cXW*px+f.sXW*pw, f.cXW*pw-f.sXW*px
	py, pw = f.cYW*py+f.sYW*pw, f.cYW*pw-f.sYW*py
	pz, pw = f.cZW*pz+f.sZW*pw, f.cZW*pw-f.sZW*pz

	k := projectionK / (projectionK + pw)
	qx := px*k + u*f.parallax
	qy := py*k + v*f.parallax
	qz := pz * k

	cx := fract(qx*f.freq) - 0.5
	cy := fract(qy*f.freq) - 0.5
	cz := fract(qz*f.freq) - 0.5
	val := 1 - smoothstep(0.15, 0.28, math.Sqrt(cx*cx+cy*cy+cz*cz))
	val += math.Sin(px*6) * math.Cos(py*9) * math.Sin(pw*4) * f.chaos

	bright := math.Pow(1-clamp(math.Abs(val), 0, 1), gamma) * f.intensity
	return float32(f.r * bright), float32(f.g * bright), float32(f.b * bright), float32(bright)
}

// HSV converts a wrapping hue in turns plus saturation and value to RGB.
func HSV(h, s, v float64) (r, g, b float64) {
	c := colorful.Hsv(fract(h)*360, clamp(s, 0, 1), v)
	return c.R, c.G, c.B
}

func fract(x float64) float64 { return x - math.Floor(x) }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}
