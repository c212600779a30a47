package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

// fakeBackend records every call made against it.
type fakeBackend struct {
	compileErr error
	nilProg    bool
	prog       *fakeProgram
	compiles   int
	viewports  [][2]int
	clears     int
	draws      int
}

func (b *fakeBackend) Compile(src []byte) (Program, error) {
	b.compiles++
	if b.compileErr != nil {
		return nil, b.compileErr
	}
	if b.nilProg {
		return nil, nil
	}
	b.prog = newFakeProgram("Time", "Resolution", "GridDensity", "Hue", "Intensity")
	return b.prog, nil
}

func (b *fakeBackend) Viewport(w, h int) { b.viewports = append(b.viewports, [2]int{w, h}) }
func (b *fakeBackend) Clear()            { b.clears++ }
func (b *fakeBackend) DrawQuad(Program)  { b.draws++ }

type fakeProgram struct {
	locs    map[string]Location
	lookups map[string]int
	vals    map[Location][2]float32
}

func newFakeProgram(names ...string) *fakeProgram {
	p := &fakeProgram{locs: map[string]Location{}, lookups: map[string]int{}, vals: map[Location][2]float32{}}
	for i, n := range names {
		p.locs[n] = Location(i)
	}
	return p
}

func (p *fakeProgram) Uniform(name string) (Location, bool) {
	p.lookups[name]++
	l, ok := p.locs[name]
	return l, ok
}
func (p *fakeProgram) Set1f(l Location, v float32)    { p.vals[l] = [2]float32{v, 0} }
func (p *fakeProgram) Set2f(l Location, x, y float32) { p.vals[l] = [2]float32{x, y} }

func (p *fakeProgram) value(name string) [2]float32 { return p.vals[p.locs[name]] }

func quietLogger(buf *bytes.Buffer) *zerolog.Logger {
	l := zerolog.New(buf).Level(zerolog.InfoLevel)
	return &l
}

func TestResizeFloorsAndSkipsUnchanged(t *testing.T) {
	surf := &StaticSurface{W: 333.7, H: 101.2, DPR: 3}
	be := &fakeBackend{}
	r := New(surf, be, Options{Name: "primary", DPRLimit: 2})
	require.False(t, r.Inert())

	w, h := r.Size()
	assert.Equal(t, 667, w)
	assert.Equal(t, 202, h)
	require.Len(t, be.viewports, 1)

	r.Resize()
	r.Resize()
	assert.Len(t, be.viewports, 1, "unchanged size must not touch the backend")

	surf.DPR = 1.5
	r.Resize()
	assert.Equal(t, [2]int{500, 151}, be.viewports[1])

	surf.W = 0
	r.Resize()
	assert.Len(t, be.viewports, 2, "zero box is a no-op")
	w, h = r.Size()
	assert.Equal(t, 500, w)
	assert.Equal(t, 151, h)
}

func TestDPRLimitDefaults(t *testing.T) {
	r := New(&StaticSurface{W: 10, H: 10, DPR: 4}, &fakeBackend{}, Options{})
	assert.Equal(t, 2.0, r.DPRLimit())
	w, _ := r.Size()
	assert.Equal(t, 20, w)
}

func TestInertRenderers(t *testing.T) {
	cases := []struct {
		name string
		surf Surface
		be   *fakeBackend
		code string
	}{
		{"no surface", nil, &fakeBackend{}, diag.CodeUnsupported},
		{"typed nil surface", (*StaticSurface)(nil), &fakeBackend{}, diag.CodeUnsupported},
		{"no context", &StaticSurface{W: 4, H: 4}, &fakeBackend{compileErr: ErrUnsupported}, diag.CodeUnsupported},
		{"nil program", &StaticSurface{W: 4, H: 4}, &fakeBackend{nilProg: true}, diag.CodeUnsupported},
		{"compile error", &StaticSurface{W: 4, H: 4}, &fakeBackend{compileErr: errors.New("0:12: undefined: vec5")}, diag.CodeCompile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var logs bytes.Buffer
			r := New(tc.surf, tc.be, Options{Name: "accent", Logger: quietLogger(&logs)})
			require.True(t, r.Inert())
			d := r.Diagnostic()
			require.NotNil(t, d)
			assert.Equal(t, tc.code, d.Code)
			assert.Equal(t, "accent", d.Evidence["layer"])

			r.Resize()
			r.SetParameters(params.Defaults())
			r.Draw()
			r.Draw()
			assert.Zero(t, tc.be.draws)
			assert.Zero(t, tc.be.clears)
			assert.Empty(t, tc.be.viewports)

			lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
			assert.Len(t, lines, 1, "failure is logged exactly once")
			assert.Contains(t, lines[0], tc.code)
			if tc.code == diag.CodeCompile {
				assert.Contains(t, lines[0], "undefined: vec5")
			}
		})
	}
}

func TestInertWithNilBackend(t *testing.T) {
	var logs bytes.Buffer
	r := New(&StaticSurface{W: 4, H: 4}, nil, Options{Logger: quietLogger(&logs)})
	assert.True(t, r.Inert())
	r.Draw()
	assert.Equal(t, 1, strings.Count(logs.String(), "\n"))
}

func TestInertWithTypedNilBackend(t *testing.T) {
	var logs bytes.Buffer
	r := New(&StaticSurface{W: 4, H: 4}, (*fakeBackend)(nil), Options{Logger: quietLogger(&logs)})
	assert.True(t, r.Inert())
	assert.NotPanics(t, r.Resize)
	assert.NotPanics(t, r.Draw)
}

func TestUniformsResolvedOnce(t *testing.T) {
	be := &fakeBackend{}
	r := New(&StaticSurface{W: 8, H: 4}, be, Options{})
	for i := 0; i < 5; i++ {
		r.Draw()
	}
	assert.Equal(t, 1, be.compiles)
	for name, n := range be.prog.lookups {
		assert.Equal(t, 1, n, name)
	}
	assert.Equal(t, params.Count+2, len(be.prog.lookups))
}

func TestDrawUploadsEverything(t *testing.T) {
	be := &fakeBackend{}
	r := New(&StaticSurface{W: 8, H: 4, DPR: 1}, be, Options{Initial: params.Partial{params.GridDensity: 40}})
	base := time.Unix(100, 0)
	r.t0 = base
	r.now = func() time.Time { return base.Add(1500 * time.Millisecond) }

	set := params.Defaults()
	set[params.Hue] = 0.9
	r.SetParameters(set)
	r.Draw()

	assert.Equal(t, 1, be.clears)
	assert.Equal(t, 1, be.draws)
	assert.Equal(t, float32(1500), be.prog.value("Time")[0])
	assert.Equal(t, [2]float32{8, 4}, be.prog.value("Resolution"))
	assert.Equal(t, float32(0.9), be.prog.value("Hue")[0])
	assert.Equal(t, float32(28), be.prog.value("GridDensity")[0], "SetParameters replaces the initial set")
	assert.Equal(t, float32(0.35), be.prog.value("Intensity")[0])
}

func TestInitialParametersMerged(t *testing.T) {
	r := New(&StaticSurface{W: 1, H: 1}, &fakeBackend{}, Options{
		Initial: params.Partial{params.GridDensity: 36, params.Chaos: 0},
	})
	p := r.Parameters()
	assert.Equal(t, 36.0, p[params.GridDensity])
	assert.Equal(t, 0.0, p[params.Chaos])
	assert.Equal(t, 0.55, p[params.Hue])
}
