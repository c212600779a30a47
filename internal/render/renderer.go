package render

import (
	"errors"
	"math"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render/shader"
)

const defaultDPRLimit = 2.0

// Renderer draws one visual layer: it owns the compiled program and its
// cached uniform handles, and uploads a full parameter set per Draw.
//
// A renderer that could not get a context or compile its program is inert:
// Resize and Draw become no-ops and the failure is logged once.
type Renderer struct {
	name     string
	surf     Surface
	be       Backend
	prog     Program
	dprLimit float64
	lerp     float64

	uTime, uRes locRef
	uParams     [params.Count]locRef

	cur    params.Set
	w, h   int
	t0     time.Time
	now    func() time.Time
	inert  *diag.Diagnostic
	logger zerolog.Logger
}

type locRef struct {
	loc Location
	ok  bool
}

// New builds a renderer. It never fails; check Inert for the outcome.
func New(surf Surface, be Backend, opts Options) *Renderer {
	r := &Renderer{
		name:     opts.Name,
		surf:     surf,
		be:       be,
		dprLimit: opts.DPRLimit,
		lerp:     opts.LerpFactor,
		cur:      params.Defaults().Merge(opts.Initial),
		now:      time.Now,
		logger:   log.Logger,
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	r.logger = r.logger.With().Str("layer", r.name).Logger()
	if r.dprLimit < 1 || !params.Finite(r.dprLimit) {
		r.dprLimit = defaultDPRLimit
	}
	r.t0 = r.now()

	if isNil(surf) || isNil(be) {
		r.fail(diag.CodeUnsupported, "no drawing surface or graphics context", nil)
		return r
	}
	src := opts.Source
	if len(src) == 0 {
		src = shader.Source
	}
	prog, err := be.Compile(src)
	switch {
	case errors.Is(err, ErrUnsupported):
		r.fail(diag.CodeUnsupported, "graphics context unavailable", err)
		return r
	case err != nil:
		r.fail(diag.CodeCompile, "lattice program failed to compile", err)
		return r
	case prog == nil:
		r.fail(diag.CodeUnsupported, "graphics context returned no program", nil)
		return r
	}
	r.prog = prog
	r.resolveUniforms()
	r.Resize()
	return r
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (r *Renderer) fail(code, summary string, err error) {
	d := &diag.Diagnostic{Severity: diag.Warn, Code: code, Summary: summary}
	ev := r.logger.Warn().Str("code", code)
	if err != nil {
		d.Detail = err.Error()
		ev = ev.Err(err)
	}
	ev.Msg(summary + "; layer disabled")
	r.inert = d
}

func (r *Renderer) resolveUniforms() {
	resolve := func(name string) locRef {
		loc, ok := r.prog.Uniform(name)
		return locRef{loc: loc, ok: ok}
	}
	r.uTime = resolve(shader.UniformTime)
	r.uRes = resolve(shader.UniformResolution)
	for _, n := range params.Names() {
		r.uParams[n] = resolve(n.Uniform())
	}
}

func (r *Renderer) Name() string { return r.name }

// Inert reports whether the renderer has been disabled.
func (r *Renderer) Inert() bool { return r.inert != nil }

// Diagnostic describes why the renderer is inert, or nil.
func (r *Renderer) Diagnostic() *diag.Diagnostic {
	if r.inert == nil {
		return nil
	}
	d := *r.inert
	d.Evidence = map[string]any{"layer": r.name}
	return &d
}

// Size is the backing-store size in device pixels.
func (r *Renderer) Size() (w, h int) { return r.w, r.h }

func (r *Renderer) DPRLimit() float64 { return r.dprLimit }

func (r *Renderer) LerpFactor() float64 { return r.lerp }

// Resize recomputes the backing store from the surface box. The backend is
// only touched when the pixel size actually changes.
func (r *Renderer) Resize() {
	if r.Inert() {
		return
	}
	cw, ch := r.surf.CSSSize()
	if !(cw > 0) || !(ch > 0) {
		return
	}
	dpr := math.Min(r.surf.DevicePixelRatio(), r.dprLimit)
	if !(dpr > 0) {
		dpr = 1
	}
	w := int(math.Floor(cw * dpr))
	h := int(math.Floor(ch * dpr))
	if w == r.w && h == r.h {
		return
	}
	r.w, r.h = w, h
	r.be.Viewport(w, h)
	r.logger.Debug().Int("w", w).Int("h", h).Msg("backing store resized")
}

// SetParameters records the values the next Draw uploads.
func (r *Renderer) SetParameters(s params.Set) { r.cur = s }

func (r *Renderer) Parameters() params.Set { return r.cur }

// Elapsed is the program clock in milliseconds.
func (r *Renderer) Elapsed() float64 {
	return float64(r.now().Sub(r.t0).Microseconds()) / 1000.0
}

// Draw clears the surface and runs the program once over the viewport.
func (r *Renderer) Draw() {
	if r.Inert() || r.w == 0 || r.h == 0 {
		return
	}
	r.be.Clear()
	r.set1(r.uTime, r.Elapsed())
	for _, n := range params.Names() {
		r.set1(r.uParams[n], r.cur[n])
	}
	if r.uRes.ok {
		r.prog.Set2f(r.uRes.loc, float32(r.w), float32(r.h))
	}
	r.be.DrawQuad(r.prog)
}

func (r *Renderer) set1(ref locRef, v float64) {
	if ref.ok {
		r.prog.Set1f(ref.loc, float32(v))
	}
}
