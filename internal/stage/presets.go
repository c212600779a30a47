package stage

import "github.com/coreman2200/funtimes-hyperlattice/internal/params"

// Phase names a step of a card's morph lifecycle.
type Phase string

const (
	Dormant    Phase = "dormant"
	Circle     Phase = "circle"
	Expanding  Phase = "expanding"
	Full       Phase = "full"
	Splitting  Phase = "splitting"
	Background Phase = "background"
	Dissolved  Phase = "dissolved"
)

// Phases lists the lifecycle in order.
func Phases() []Phase {
	return []Phase{Dormant, Circle, Expanding, Full, Splitting, Background, Dissolved}
}

type phaseValues struct{ density, intensity, speed, chaos, morph float64 }

// Low density reads as zoomed in, high as zoomed out.
var phaseTable = map[Phase]phaseValues{
	Dormant:    {20, 0.2, 0.4, 0.08, 0.8},
	Circle:     {28, 0.35, 0.7, 0.12, 1.1},
	Expanding:  {38, 0.45, 0.85, 0.18, 1.5},
	Full:       {48, 0.55, 0.95, 0.22, 1.8},
	Splitting:  {35, 0.65, 1.2, 0.28, 2.2},
	Background: {25, 0.75, 0.5, 0.32, 2.5},
	Dissolved:  {18, 0.25, 0.3, 0.15, 1.0},
}

// Preset returns the stage config of a lifecycle phase.
func Preset(name string) (Config, bool) {
	v, ok := phaseTable[Phase(name)]
	if !ok {
		return Config{}, false
	}
	return Config{Params: params.Partial{
		params.GridDensity: v.density,
		params.Intensity:   v.intensity,
		params.Speed:       v.speed,
		params.Chaos:       v.chaos,
		params.Morph:       v.morph,
	}}, true
}

// PresetNames lists the preset names in lifecycle order.
func PresetNames() []string {
	out := make([]string, 0, len(phaseTable))
	for _, p := range Phases() {
		out = append(out, string(p))
	}
	return out
}
