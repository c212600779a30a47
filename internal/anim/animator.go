package anim

import (
	"math"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

// DefaultLerp is the smoothing factor used when none is configured.
const DefaultLerp = 0.045

// Animator eases a current parameter set toward a target with exponential
// smoothing. Each Step moves every value a fixed fraction of the remaining
// distance, so current approaches target without overshoot.
type Animator struct {
	current params.Set
	target  params.Set
	lerp    float64
}

// New starts with current == target == initial.
func New(initial params.Set, lerp float64) *Animator {
	initial = params.Defaults().Replace(initial)
	return &Animator{current: initial, target: initial, lerp: clampLerp(lerp)}
}

func clampLerp(f float64) float64 {
	if !params.Finite(f) || f <= 0 {
		return DefaultLerp
	}
	if f > 1 {
		return 1
	}
	return f
}

func (a *Animator) Lerp() float64 { return a.lerp }

// SetLerp changes the smoothing factor; values outside (0,1] are clamped,
// non-positive ones fall back to DefaultLerp.
func (a *Animator) SetLerp(f float64) { a.lerp = clampLerp(f) }

func (a *Animator) Current() params.Set { return a.current }

func (a *Animator) Target() params.Set { return a.target }

// UpdateTargets merges p into the target. Current is untouched.
func (a *Animator) UpdateTargets(p params.Partial) {
	a.target = a.target.Merge(p)
}

// SetTarget replaces the whole target; non-finite fields keep their value.
func (a *Animator) SetTarget(s params.Set) {
	a.target = a.target.Replace(s)
}

// Step advances current one frame toward target.
func (a *Animator) Step() params.Set {
	for i := range a.current {
		c, t := a.current[i], a.target[i]
		d := t - c
		if math.IsInf(d, 0) {
			// Far apart finite values: blend without forming the difference.
			a.current[i] = c*(1-a.lerp) + t*a.lerp
			continue
		}
		a.current[i] = c + d*a.lerp
	}
	return a.current
}

// Settled reports whether every value is within eps of its target.
func (a *Animator) Settled(eps float64) bool {
	for i := range a.current {
		d := a.target[i] - a.current[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}
