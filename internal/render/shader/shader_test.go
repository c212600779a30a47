package shader

import (
	"go/parser"
	"go/token"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

func TestSourceDeclaresEveryUniform(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "lattice.kage", Source, 0)
	require.NoError(t, err)

	declared := map[string]bool{}
	for name, obj := range f.Scope.Objects {
		if obj.Kind.String() == "var" {
			declared[name] = true
		}
	}
	assert.True(t, declared[UniformTime])
	assert.True(t, declared[UniformResolution])
	for _, n := range params.Names() {
		assert.True(t, declared[n.Uniform()], n.Uniform())
	}
	assert.NotNil(t, f.Scope.Lookup(EntryPoint))
}

func TestZeroIntensityIsTransparent(t *testing.T) {
	p := params.Defaults()
	p[params.Intensity] = 0
	f := Prepare(Uniforms{TimeMS: 1234, Width: 64, Height: 32, P: p})
	for _, xy := range [][2]float64{{0.5, 0.5}, {32, 16}, {63.5, 31.5}} {
		r, g, b, a := f.At(xy[0], xy[1])
		assert.Zero(t, a)
		assert.Zero(t, r+g+b)
	}
}

func TestOutputIsPremultipliedAndBounded(t *testing.T) {
	p := params.Defaults()
	p[params.Intensity] = 1
	p[params.Saturation] = 1
	f := Prepare(Uniforms{TimeMS: 5000, Width: 40, Height: 40, P: p})
	for y := 0.5; y < 40; y += 3 {
		for x := 0.5; x < 40; x += 3 {
			r, g, b, a := f.At(x, y)
			require.GreaterOrEqual(t, a, float32(0))
			require.LessOrEqual(t, a, float32(1))
			for _, c := range []float32{r, g, b} {
				require.LessOrEqual(t, c, a+1e-6)
				require.GreaterOrEqual(t, c, float32(0))
			}
		}
	}
}

func TestCellCornerAtCentre(t *testing.T) {
	// With no morph the centre maps to the origin, a cell corner far from
	// any node: value 0, so alpha is the full intensity.
	p := params.Defaults()
	p[params.Morph] = 0
	p[params.Chaos] = 0
	f := Prepare(Uniforms{TimeMS: 0, Width: 10, Height: 10, P: p})
	_, _, _, a := f.At(5, 5)
	assert.InDelta(t, p[params.Intensity], a, 1e-6)
}

func TestHSVWrapsHue(t *testing.T) {
	r1, g1, b1 := HSV(0.25, 0.8, 0.95)
	r2, g2, b2 := HSV(1.25, 0.8, 0.95)
	assert.InDelta(t, r1, r2, 1e-9)
	assert.InDelta(t, g1, g2, 1e-9)
	assert.InDelta(t, b1, b2, 1e-9)

	r, g, b := HSV(0, 1, 1)
	assert.InDelta(t, 1, r, 1e-9)
	assert.InDelta(t, 0, g, 1e-9)
	assert.InDelta(t, 0, b, 1e-9)
	assert.False(t, math.IsNaN(r))
}
