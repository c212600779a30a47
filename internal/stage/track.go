package stage

import (
	"math"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

// MorphState is the visual state of a card at a scroll position.
type MorphState string

const (
	MorphCircle     MorphState = "circle"
	MorphExpanding  MorphState = "expanding"
	MorphExpanded   MorphState = "expanded"
	MorphBackground MorphState = "background"
)

// Position locates a scroll progress within a card's stages.
type Position struct {
	Progress float64
	Stage    int
	Frac     float64
	Morph    MorphState
	Active   bool
	Immersed bool
}

// Locate splits progress in [0,1] across stageCount stages. Stage is
// clamped to the last stage; Frac is the remainder within it.
func Locate(progress float64, stageCount int) Position {
	progress = clamp01(progress)
	if stageCount < 1 {
		stageCount = 1
	}
	sp := progress * float64(stageCount)
	idx := math.Floor(sp)
	pos := Position{
		Progress: progress,
		Stage:    min(int(idx), stageCount-1),
		Frac:     sp - idx,
		Active:   progress > 0.2 && progress < 0.9,
		Immersed: progress > 0.6,
	}
	switch {
	case progress > 0.35 && progress < 0.65:
		pos.Morph = MorphExpanded
	case progress >= 0.65:
		pos.Morph = MorphBackground
	case progress > 0.15:
		pos.Morph = MorphExpanding
	default:
		pos.Morph = MorphCircle
	}
	return pos
}

// Track is a scrolling card: a base config and one config per stage.
type Track struct {
	Name   string   `yaml:"name"`
	Base   Config   `yaml:"base"`
	Stages []Config `yaml:"stages"`
}

// Fallbacks used when the base config does not name a value.
const (
	trackIntensity = 0.4
	trackChaos     = 0.15
	trackDensity   = 30.0
)

// At returns the position and the stage config for progress: base merged
// with the current stage, then lifted by progress and the stage fraction.
func (t Track) At(progress float64) (Position, Config) {
	pos := Locate(progress, len(t.Stages))
	cfg := t.Base.Clone()
	if pos.Stage < len(t.Stages) {
		cfg = cfg.Merge(t.Stages[pos.Stage])
	}
	cfg = cfg.
		With(params.Intensity, t.Base.GetOr(params.Intensity, trackIntensity)+pos.Progress*0.15).
		With(params.Chaos, t.Base.GetOr(params.Chaos, trackChaos)+pos.Frac*0.1).
		With(params.GridDensity, t.Base.GetOr(params.GridDensity, trackDensity)+pos.Frac*8)
	return pos, cfg
}

// FocusThreshold is the strength below which focus leaves a stage alone.
const FocusThreshold = 0.3

// FocusStrength is 1 at the centre of attention and falls to 0 at
// maxDistance.
func FocusStrength(distance, maxDistance float64) float64 {
	if !(maxDistance > 0) {
		return 0
	}
	return 1 - math.Min(math.Abs(distance)/maxDistance, 1)
}

// Focus slows and zooms out the lattice around a focused card and
// brightens it. It reports false when strength is below FocusThreshold.
func Focus(base Config, strength float64) (Config, bool) {
	strength = clamp01(strength)
	if strength <= FocusThreshold {
		return base, false
	}
	d := params.Defaults()
	speed := base.GetOr(params.Speed, d[params.Speed])
	return base.
		With(params.Speed, speed*(0.2+(1-strength)*0.8)).
		With(params.GridDensity, base.GetOr(params.GridDensity, d[params.GridDensity])+strength*25).
		With(params.Intensity, base.GetOr(params.Intensity, d[params.Intensity])+strength*0.3).
		With(params.Chaos, base.GetOr(params.Chaos, d[params.Chaos])+strength*0.12), true
}

func clamp01(v float64) float64 {
	if !params.Finite(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
