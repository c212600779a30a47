package choreo

import "github.com/coreman2200/funtimes-hyperlattice/internal/params"

// Gains scale one input (scroll progress, an engage toggle) into parameter
// offsets.
type Gains struct {
	Intensity float64 `yaml:"intensity" json:"intensity"`
	Chaos     float64 `yaml:"chaos" json:"chaos"`
	Morph     float64 `yaml:"morph" json:"morph"`
	Geometry  float64 `yaml:"geometry" json:"geometry"`
	Speed     float64 `yaml:"speed" json:"speed"`
}

func (g Gains) scaled(k float64) params.Set {
	var s params.Set
	s[params.Intensity] = g.Intensity * k
	s[params.Chaos] = g.Chaos * k
	s[params.Morph] = g.Morph * k
	s[params.Geometry] = g.Geometry * k
	s[params.Speed] = g.Speed * k
	return s
}

// Rotation maps tilt to the three W-plane angles.
type Rotation struct {
	XW float64 `yaml:"xw" json:"xw"`
	YW float64 `yaml:"yw" json:"yw"`
	ZW float64 `yaml:"zw" json:"zw"`
}

// Ramp is base + magnitude·PerMagnitude.
type Ramp struct {
	Base         float64 `yaml:"base" json:"base"`
	PerMagnitude float64 `yaml:"per_magnitude" json:"per_magnitude"`
}

func (r Ramp) at(m float64) float64 { return r.Base + m*r.PerMagnitude }

// Boost is the engaged-tilt response to pointer magnitude.
type Boost struct {
	Intensity Ramp `yaml:"intensity" json:"intensity"`
	Chaos     Ramp `yaml:"chaos" json:"chaos"`
	Morph     Ramp `yaml:"morph" json:"morph"`
}

// LayerPolicy holds one layer's coefficients.
type LayerPolicy struct {
	Scroll Gains    `yaml:"scroll" json:"scroll"`
	Engage Gains    `yaml:"engage" json:"engage"`
	Tilt   Rotation `yaml:"tilt" json:"tilt"`
	Boost  Boost    `yaml:"boost" json:"boost"`
	// Parallax drift per unit of smoothed pointer x.
	PointerParallax float64 `yaml:"pointer_parallax" json:"pointer_parallax"`
	// Parallax drift per radian of YW tilt.
	TiltParallax float64 `yaml:"tilt_parallax" json:"tilt_parallax"`
}

// Policy is the full target-computation policy.
type Policy struct {
	Primary LayerPolicy `yaml:"primary" json:"primary"`
	Accent  LayerPolicy `yaml:"accent" json:"accent"`
	// PointerSmoothing is the per-tick lerp of the pointer position.
	PointerSmoothing float64 `yaml:"pointer_smoothing" json:"pointer_smoothing"`
}

// DefaultPolicy is the tuned coefficient set. The accent layer reacts more
// strongly than the primary one.
func DefaultPolicy() Policy {
	return Policy{
		Primary: LayerPolicy{
			Scroll: Gains{Intensity: 0.14, Chaos: 0.08, Morph: 0.12, Geometry: 0.35, Speed: 0.25},
			Engage: Gains{Intensity: 0.08, Chaos: 0.03, Morph: 0.06},
			Tilt:   Rotation{XW: 0.9, YW: 0.9, ZW: 0.55},
			Boost: Boost{
				Intensity: Ramp{0.12, 0.18},
				Chaos:     Ramp{0.04, 0.12},
				Morph:     Ramp{0.08, 0.18},
			},
			PointerParallax: 0.5,
			TiltParallax:    0.05,
		},
		Accent: LayerPolicy{
			Scroll: Gains{Intensity: 0.2, Chaos: 0.1, Morph: 0.1, Geometry: 0.28, Speed: 0.22},
			Engage: Gains{Intensity: 0.12, Chaos: 0.04, Morph: 0.05},
			Tilt:   Rotation{XW: 1.2, YW: 1.1, ZW: 0.8},
			Boost: Boost{
				Intensity: Ramp{0.12 * 1.4, 0.18 * 1.4},
				Chaos:     Ramp{0.03, 0.1},
				Morph:     Ramp{0.06, 0.16},
			},
			PointerParallax: 1.2,
			TiltParallax:    0.08,
		},
		PointerSmoothing: 0.04,
	}
}

func (p Policy) layer(l Layer) LayerPolicy {
	if l == Accent {
		return p.Accent
	}
	return p.Primary
}

func (p Policy) sanitized() Policy {
	if !(p.PointerSmoothing > 0) || p.PointerSmoothing > 1 {
		p.PointerSmoothing = DefaultPolicy().PointerSmoothing
	}
	return p
}
