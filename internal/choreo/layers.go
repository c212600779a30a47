package choreo

import (
	"github.com/coreman2200/funtimes-hyperlattice/internal/anim"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
)

// Layer selects one of the two visual layers.
type Layer int

const (
	Primary Layer = iota
	Accent

	layerCount int = iota
)

// Layers lists both layers, bottom first.
func Layers() []Layer { return []Layer{Primary, Accent} }

func (l Layer) String() string {
	switch l {
	case Primary:
		return "primary"
	case Accent:
		return "accent"
	}
	return "unknown"
}

func (l Layer) valid() bool { return l == Primary || l == Accent }

// ParseLayer resolves "primary" or "accent".
func ParseLayer(s string) (Layer, bool) {
	switch s {
	case "primary":
		return Primary, true
	case "accent":
		return Accent, true
	}
	return 0, false
}

// LayerOptions returns the tuned renderer options of a layer: the dense,
// slow primary backdrop and the sparser, faster accent.
func LayerOptions(l Layer) render.Options {
	if l == Accent {
		return render.Options{
			Name: "accent",
			Initial: params.Partial{
				params.GridDensity: 24,
				params.Chaos:       0.1,
				params.Intensity:   0.28,
				params.Speed:       0.65,
				params.Hue:         0.62,
				params.Saturation:  0.9,
				params.Morph:       0.9,
			},
			LerpFactor: 0.06,
			DPRLimit:   1.5,
		}
	}
	return render.Options{
		Name: "primary",
		Initial: params.Partial{
			params.GridDensity: 36,
			params.Chaos:       0.18,
			params.Intensity:   0.4,
			params.Speed:       0.9,
			params.Saturation:  0.82,
			params.Morph:       1.4,
			params.Hue:         0.56,
		},
		LerpFactor: 0.04,
		DPRLimit:   2,
	}
}

// accentStageKeys are the stage keys the accent layer takes as-is; hue and
// intensity only reach it through the accent aliases.
var accentStageKeys = func() [params.Count]bool {
	var ok [params.Count]bool
	for _, n := range params.Names() {
		ok[n] = n != params.Hue && n != params.Intensity
	}
	return ok
}()

type layerState struct {
	r     *render.Renderer
	anim  *anim.Animator
	stage params.Set
	tilt  params.Set
}

func newLayerState(spec LayerSpec) *layerState {
	initial := params.Defaults()
	lerp := spec.Lerp
	if spec.Renderer != nil {
		initial = spec.Renderer.Parameters()
		if lerp == 0 {
			lerp = spec.Renderer.LerpFactor()
		}
	}
	initial = initial.Merge(spec.Initial)
	return &layerState{
		r:     spec.Renderer,
		anim:  anim.New(initial, lerp),
		stage: initial,
	}
}
