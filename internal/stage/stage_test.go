package stage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

func TestParseAliasesAndSkips(t *testing.T) {
	c, skipped := Parse(map[string]any{
		"hue":         0.9,
		"gridDensity": "44",
		"accentHue":   0.62,
		"accentLift":  0.5,
		"morphFactor": 1.2,
		"chaos":       math.NaN(),
		"speed":       "fast",
	})
	assert.Equal(t, []string{"chaos", "morphFactor", "speed"}, skipped)
	assert.Equal(t, skipped, c.Skipped())
	assert.Equal(t, 0.9, c.Params[params.Hue])
	assert.Equal(t, 44.0, c.Params[params.GridDensity])
	require.NotNil(t, c.AccentHue)
	require.NotNil(t, c.AccentLift)
	assert.Equal(t, 0.62, *c.AccentHue)
	assert.Equal(t, 0.5, *c.AccentLift)
	assert.Len(t, c.Params, 2)
}

func TestMergeDoesNotAlias(t *testing.T) {
	a, _ := Parse(map[string]any{"hue": 0.1, "accentHue": 0.2})
	b, _ := Parse(map[string]any{"hue": 0.3})
	m := a.Merge(b)
	assert.Equal(t, 0.3, m.Params[params.Hue])
	assert.Equal(t, 0.2, *m.AccentHue)

	*m.AccentHue = 0.7
	m.Params[params.Morph] = 2
	assert.Equal(t, 0.2, *a.AccentHue)
	assert.False(t, a.Params.Has(params.Morph))
}

func TestYAMLRoundTrip(t *testing.T) {
	var c Config
	require.NoError(t, yaml.Unmarshal([]byte("hue: 0.9\naccentLift: 0.4\nbogus: 1\n"), &c))
	assert.Equal(t, 0.9, c.Params[params.Hue])
	assert.Equal(t, []string{"bogus"}, c.Skipped())

	out, err := yaml.Marshal(c)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, map[string]any{"hue": 0.9, "accentLift": 0.4}, back)
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	require.Len(t, names, 7)
	assert.Equal(t, "dormant", names[0])
	assert.Equal(t, "dissolved", names[6])

	full, ok := Preset("full")
	require.True(t, ok)
	assert.Equal(t, 48.0, full.Params[params.GridDensity])
	assert.Equal(t, 1.8, full.Params[params.Morph])
	assert.False(t, full.Params.Has(params.Hue))

	_, ok = Preset("nope")
	assert.False(t, ok)
}

func TestLocate(t *testing.T) {
	cases := []struct {
		progress float64
		stage    int
		frac     float64
		morph    MorphState
		active   bool
		immersed bool
	}{
		{0, 0, 0, MorphCircle, false, false},
		{0.15, 0, 0.45, MorphCircle, false, false},
		{0.2, 0, 0.6, MorphExpanding, false, false},
		{0.5, 1, 0.5, MorphExpanded, true, false},
		{0.65, 1, 0.95, MorphBackground, true, true},
		{1, 2, 0, MorphBackground, false, true},
	}
	for _, tc := range cases {
		p := Locate(tc.progress, 3)
		assert.Equal(t, tc.stage, p.Stage, "stage at %v", tc.progress)
		assert.InDelta(t, tc.frac, p.Frac, 1e-9, "frac at %v", tc.progress)
		assert.Equal(t, tc.morph, p.Morph, "morph at %v", tc.progress)
		assert.Equal(t, tc.active, p.Active, "active at %v", tc.progress)
		assert.Equal(t, tc.immersed, p.Immersed, "immersed at %v", tc.progress)
	}

	assert.Equal(t, 0.0, Locate(math.NaN(), 3).Progress)
	assert.Equal(t, 0, Locate(0.7, 0).Stage)
}

func TestTrackAt(t *testing.T) {
	base, _ := Parse(map[string]any{"intensity": 0.3, "hue": 0.4})
	s0, _ := Parse(map[string]any{"morph": 1.6, "hue": 0.1})
	s1, _ := Parse(map[string]any{"morph": 2.0})
	tr := Track{Base: base, Stages: []Config{s0, s1}}

	pos, cfg := tr.At(0.25)
	assert.Equal(t, 0, pos.Stage)
	assert.InDelta(t, 0.5, pos.Frac, 1e-12)
	assert.Equal(t, 0.1, cfg.Params[params.Hue])
	assert.Equal(t, 1.6, cfg.Params[params.Morph])
	assert.InDelta(t, 0.3+0.25*0.15, cfg.Params[params.Intensity], 1e-12)
	assert.InDelta(t, 0.15+0.05, cfg.Params[params.Chaos], 1e-12)
	assert.InDelta(t, 30+4, cfg.Params[params.GridDensity], 1e-12)

	_, cfg = tr.At(0.75)
	assert.Equal(t, 2.0, cfg.Params[params.Morph])
	assert.Equal(t, 0.4, cfg.Params[params.Hue])
}

func TestFocus(t *testing.T) {
	base, _ := Parse(map[string]any{"speed": 1.0, "gridDensity": 30})
	_, ok := Focus(base, 0.2)
	assert.False(t, ok)

	f, ok := Focus(base, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.2, f.Params[params.Speed], 1e-12)
	assert.InDelta(t, 55, f.Params[params.GridDensity], 1e-12)
	assert.InDelta(t, 0.35+0.3, f.Params[params.Intensity], 1e-12)
	assert.InDelta(t, 0.12+0.12, f.Params[params.Chaos], 1e-12)
	assert.Equal(t, 1.0, base.Params[params.Speed], "base untouched")

	assert.Equal(t, 1.0, FocusStrength(0, 800))
	assert.Equal(t, 0.5, FocusStrength(-400, 800))
	assert.Equal(t, 0.0, FocusStrength(2000, 800))
	assert.Equal(t, 0.0, FocusStrength(10, 0))
}

func TestBlend(t *testing.T) {
	hue := 0.8
	a := FromPartial(params.Partial{params.GridDensity: 20, params.Chaos: 0.4})
	b := FromPartial(params.Partial{params.GridDensity: 40})
	b.AccentHue = &hue

	assert.Equal(t, a.Map(), Blend(a, b, 0).Map())
	assert.Equal(t, b.Map(), Blend(a, b, 1).Map())
	assert.Equal(t, b.Map(), Blend(a, b, 3).Map(), "alpha clamped")

	mid := Blend(a, b, 0.5)
	assert.InDelta(t, 30, mid.Params[params.GridDensity], 1e-12)
	def := params.Defaults()[params.Chaos]
	assert.InDelta(t, 0.4+(def-0.4)*0.5, mid.Params[params.Chaos], 1e-12, "missing side falls back to defaults")
	assert.False(t, mid.Params.Has(params.Hue))
	require.NotNil(t, mid.AccentHue)
	assert.Equal(t, 0.8, *mid.AccentHue)
	assert.Nil(t, mid.AccentLift)
}
