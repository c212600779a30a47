package params

import (
	"math"
	"sort"
)

// Name identifies one shader parameter.
type Name int

const (
	Geometry Name = iota
	GridDensity
	Chaos
	Speed
	Hue
	Intensity
	Saturation
	Morph
	Rot4dXW
	Rot4dYW
	Rot4dZW
	Parallax

	Count int = iota
)

var keys = [Count]string{
	"geometry", "gridDensity", "chaos", "speed", "hue", "intensity",
	"saturation", "morph", "rot4dXW", "rot4dYW", "rot4dZW", "parallax",
}

var uniforms = [Count]string{
	"Geometry", "GridDensity", "Chaos", "Speed", "Hue", "Intensity",
	"Saturation", "Morph", "Rot4dXW", "Rot4dYW", "Rot4dZW", "Parallax",
}

// Names lists every parameter in declaration order.
func Names() []Name {
	out := make([]Name, Count)
	for i := range out {
		out[i] = Name(i)
	}
	return out
}

// Key is the config/json key ("gridDensity").
func (n Name) Key() string {
	if !n.Valid() {
		return ""
	}
	return keys[n]
}

// Uniform is the exported uniform name in the fragment program ("GridDensity").
func (n Name) Uniform() string {
	if !n.Valid() {
		return ""
	}
	return uniforms[n]
}

func (n Name) String() string { return n.Key() }

func (n Name) Valid() bool { return n >= 0 && int(n) < Count }

// Lookup resolves a config key to a Name.
func Lookup(key string) (Name, bool) {
	for i, k := range keys {
		if k == key {
			return Name(i), true
		}
	}
	return 0, false
}

// Set is a complete parameter set. Every slot always holds a value.
type Set [Count]float64

var defaults = Set{
	Geometry:    1.0,
	GridDensity: 28,
	Chaos:       0.12,
	Speed:       0.8,
	Hue:         0.55,
	Intensity:   0.35,
	Saturation:  0.75,
	Morph:       1.05,
	Rot4dXW:     0,
	Rot4dYW:     0,
	Rot4dZW:     0,
	Parallax:    0,
}

// Defaults returns the base configuration every set falls back to.
func Defaults() Set { return defaults }

func (s Set) Get(n Name) float64 { return s[n] }

// Merge returns a copy of s with the finite values of p applied.
func (s Set) Merge(p Partial) Set {
	for n, v := range p {
		if !n.Valid() || !Finite(v) {
			continue
		}
		s[n] = v
	}
	return s
}

// Replace returns next, keeping s's value wherever next is not finite.
func (s Set) Replace(next Set) Set {
	for i, v := range next {
		if Finite(v) {
			s[i] = v
		}
	}
	return s
}

// Add is field-wise addition.
func (s Set) Add(o Set) Set {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

// Partial converts s into a partial naming every parameter.
func (s Set) Partial() Partial {
	p := make(Partial, Count)
	for i, v := range s {
		p[Name(i)] = v
	}
	return p
}

// Map renders s with config keys, for logs and json.
func (s Set) Map() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, v := range s {
		m[keys[i]] = v
	}
	return m
}

// Partial names a subset of parameters.
type Partial map[Name]float64

// Has reports whether p names n with a finite value.
func (p Partial) Has(n Name) bool {
	v, ok := p[n]
	return ok && Finite(v)
}

// Clone copies p; nil stays nil.
func (p Partial) Clone() Partial {
	if p == nil {
		return nil
	}
	out := make(Partial, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the named parameters in declaration order.
func (p Partial) Keys() []Name {
	out := make([]Name, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
