// Package choreo animates the visual layers: it turns stage changes, scroll
// progress and pointer input into per-layer targets and eases each layer's
// parameters toward them once per frame.
package choreo

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/frame"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// LayerSpec configures one layer. A nil Renderer animates without drawing.
// Initial and Lerp default to the renderer's own settings.
type LayerSpec struct {
	Renderer *render.Renderer
	Initial  params.Partial
	Lerp     float64
}

type Options struct {
	Primary   LayerSpec
	Accent    LayerSpec
	Policy    *Policy
	Scheduler frame.Scheduler
	Logger    *zerolog.Logger
}

// Snapshot is handed to frame listeners after every tick.
type Snapshot struct {
	Now     time.Time
	Frame   uint64
	Current [2]params.Set
}

// Conductor owns both layers and the inputs that shape their targets.
// Every method is safe for concurrent use; mutations and ticks are
// serialized, so a mutation that returns before a tick is seen by it.
type Conductor struct {
	mu     sync.Mutex
	layers [layerCount]*layerState
	policy Policy
	sched  frame.Scheduler
	logger zerolog.Logger

	scroll  float64
	engaged bool
	// raw and smoothed pointer position in [-1,1]²
	px, py float64
	sx, sy float64

	running bool
	closed  bool
	handle  frame.Handle
	frames  uint64

	subs    []*frame.Subscription
	nextLsn int
	onFrame map[int]func(Snapshot)
}

// New builds a conductor. Without a Scheduler, Start is a no-op and the host
// drives ticks with Step.
func New(opts Options) *Conductor {
	c := &Conductor{
		policy:  DefaultPolicy(),
		sched:   opts.Scheduler,
		logger:  log.Logger,
		onFrame: map[int]func(Snapshot){},
	}
	if opts.Policy != nil {
		c.policy = opts.Policy.sanitized()
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}
	c.layers[Primary] = newLayerState(opts.Primary)
	c.layers[Accent] = newLayerState(opts.Accent)
	c.applyLocked()
	return c
}

// UpdateTargets merges p into the layer's stage target. Unnamed and
// non-finite values keep their previous target.
func (c *Conductor) UpdateTargets(l Layer, p params.Partial) {
	if !l.valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers[l].stage = c.layers[l].stage.Merge(p)
	c.applyLocked()
}

// UpdateAll merges p into both layers' stage targets.
func (c *Conductor) UpdateAll(p params.Partial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ls := range c.layers {
		ls.stage = ls.stage.Merge(p)
	}
	c.applyLocked()
}

// UpdateForStage stores cfg as the new stage target. The primary layer
// takes every parameter; the accent layer ignores hue and intensity and
// takes accentHue and accentLift instead.
func (c *Conductor) UpdateForStage(cfg stage.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.layers[Primary].stage = c.layers[Primary].stage.Merge(cfg.Params)

	accent := params.Partial{}
	for n, v := range cfg.Params {
		if n.Valid() && accentStageKeys[n] {
			accent[n] = v
		}
	}
	if cfg.AccentHue != nil {
		accent[params.Hue] = *cfg.AccentHue
	}
	if cfg.AccentLift != nil {
		accent[params.Intensity] = *cfg.AccentLift
	}
	c.layers[Accent].stage = c.layers[Accent].stage.Merge(accent)

	c.applyLocked()
	c.logger.Debug().Interface("stage", cfg.Map()).Msg("stage applied")
}

// SetScrollProgress clamps p to [0,1]; NaN counts as 0.
func (c *Conductor) SetScrollProgress(p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scroll = clamp(p, 0, 1)
	c.applyLocked()
}

func (c *Conductor) ScrollProgress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scroll
}

// TiltEngage applies the fixed engage bundle of each layer.
func (c *Conductor) TiltEngage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engaged = true
	for _, l := range Layers() {
		lp := c.policy.layer(l)
		t := &c.layers[l].tilt
		t[params.Intensity] = lp.Engage.Intensity
		t[params.Chaos] = lp.Engage.Chaos
		t[params.Morph] = lp.Engage.Morph
	}
	c.applyLocked()
}

// TiltRelease returns every tilt offset to exactly zero.
func (c *Conductor) TiltRelease() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engaged = false
	for _, ls := range c.layers {
		ls.tilt = params.Set{}
	}
	c.applyLocked()
}

// TiltTo sets rotation offsets from a pointer position in [-1,1]² and,
// while engaged, boosts scaled by magnitude in [0,1].
func (c *Conductor) TiltTo(nx, ny, magnitude float64) {
	nx, ny = clamp(nx, -1, 1), clamp(ny, -1, 1)
	magnitude = clamp(magnitude, 0, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range Layers() {
		lp := c.policy.layer(l)
		t := &c.layers[l].tilt
		t[params.Rot4dXW] = ny * lp.Tilt.XW
		t[params.Rot4dYW] = nx * lp.Tilt.YW
		t[params.Rot4dZW] = (math.Abs(nx) + math.Abs(ny)) * lp.Tilt.ZW
		if c.engaged {
			t[params.Intensity] = lp.Boost.Intensity.at(magnitude)
			t[params.Chaos] = lp.Boost.Chaos.at(magnitude)
			t[params.Morph] = lp.Boost.Morph.at(magnitude)
		}
	}
	c.applyLocked()
}

func (c *Conductor) Engaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engaged
}

// PointerMove sets the pointer position the parallax drift follows.
func (c *Conductor) PointerMove(nx, ny float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.px, c.py = clamp(nx, -1, 1), clamp(ny, -1, 1)
}

// PointerLeave drops the pointer drift to exactly zero.
func (c *Conductor) PointerLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.px, c.py, c.sx, c.sy = 0, 0, 0, 0
	c.applyLocked()
}

// SetPolicy swaps the coefficient set and recomputes targets. Tilt offsets
// already applied keep their values until the next tilt call.
func (c *Conductor) SetPolicy(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p.sanitized()
	c.applyLocked()
	c.logger.Info().Msg("choreography policy updated")
}

func (c *Conductor) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetLerp changes a layer's smoothing factor.
func (c *Conductor) SetLerp(l Layer, f float64) {
	if !l.valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers[l].anim.SetLerp(f)
}

func (c *Conductor) Lerp(l Layer) float64 {
	if !l.valid() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[l].anim.Lerp()
}

func (c *Conductor) Current(l Layer) params.Set {
	if !l.valid() {
		return params.Set{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[l].anim.Current()
}

// Target is the target the next step eases toward.
func (c *Conductor) Target(l Layer) params.Set {
	if !l.valid() {
		return params.Set{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[l].anim.Target()
}

func (c *Conductor) Stage(l Layer) params.Set {
	if !l.valid() {
		return params.Set{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers[l].stage
}

// Effective computes stage ⊕ tilt ⊕ scroll ⊕ drift for l without
// changing any state.
func (c *Conductor) Effective(l Layer) params.Set {
	if !l.valid() {
		return params.Set{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveLocked(l)
}

func (c *Conductor) effectiveLocked(l Layer) params.Set {
	ls := c.layers[l]
	lp := c.policy.layer(l)
	eff := ls.stage.Add(ls.tilt).Add(lp.Scroll.scaled(c.scroll))
	eff[params.Parallax] += c.sx*lp.PointerParallax + ls.tilt[params.Rot4dYW]*lp.TiltParallax
	eff[params.Intensity] = math.Max(0, eff[params.Intensity])
	eff[params.Chaos] = math.Max(0, eff[params.Chaos])
	return eff
}

func (c *Conductor) applyLocked() {
	for _, l := range Layers() {
		c.layers[l].anim.SetTarget(c.effectiveLocked(l))
	}
}

// Resize forwards a surface resize to both renderers.
func (c *Conductor) Resize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ls := range c.layers {
		if ls.r != nil {
			ls.r.Resize()
		}
	}
}

// Renderer returns the layer's renderer, possibly nil.
func (c *Conductor) Renderer(l Layer) *render.Renderer {
	if !l.valid() {
		return nil
	}
	return c.layers[l].r
}

// Diagnostics lists why any renderer is inert.
func (c *Conductor) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, ls := range c.layers {
		if ls.r == nil {
			continue
		}
		if d := ls.r.Diagnostic(); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// OnFrame registers fn to run after every tick, outside the conductor's
// lock.
func (c *Conductor) OnFrame(fn func(Snapshot)) *frame.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextLsn++
	id := c.nextLsn
	c.onFrame[id] = fn
	sub := frame.NewSubscription(func() {
		c.mu.Lock()
		delete(c.onFrame, id)
		c.mu.Unlock()
	})
	return sub
}

// Attach subscribes to host resize and pointer events. Close releases the
// registrations.
func (c *Conductor) Attach(ev *frame.Events) {
	if ev == nil {
		return
	}
	rs := ev.OnResize(c.Resize)
	ps := ev.OnPointer(func(p frame.PointerEvent) {
		if p.Inside {
			c.PointerMove(p.X, p.Y)
		} else {
			c.PointerLeave()
		}
	})
	c.mu.Lock()
	c.subs = append(c.subs, rs, ps)
	c.mu.Unlock()
}

// Step runs one tick at now without scheduling another.
func (c *Conductor) Step(now time.Time) {
	c.mu.Lock()
	snap := c.tickLocked(now)
	fns := c.listenersLocked()
	c.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (c *Conductor) tickLocked(now time.Time) Snapshot {
	k := c.policy.PointerSmoothing
	c.sx += (c.px - c.sx) * k
	c.sy += (c.py - c.sy) * k

	snap := Snapshot{Now: now}
	for _, l := range Layers() {
		ls := c.layers[l]
		ls.anim.SetTarget(c.effectiveLocked(l))
		cur := ls.anim.Step()
		if ls.r != nil {
			ls.r.SetParameters(cur)
			ls.r.Draw()
		}
		snap.Current[l] = cur
	}
	c.frames++
	snap.Frame = c.frames
	return snap
}

func (c *Conductor) listenersLocked() []func(Snapshot) {
	if len(c.onFrame) == 0 {
		return nil
	}
	fns := make([]func(Snapshot), 0, len(c.onFrame))
	for _, fn := range c.onFrame {
		fns = append(fns, fn)
	}
	return fns
}

// Start begins the frame loop. Calling it while running cancels the pending
// frame before scheduling a new one; after Close it does nothing.
func (c *Conductor) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sched == nil {
		return
	}
	if c.handle != 0 {
		c.sched.CancelFrame(c.handle)
	}
	c.running = true
	c.handle = c.sched.RequestFrame(c.onTick)
}

// Stop cancels the pending frame.
func (c *Conductor) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Conductor) stopLocked() {
	if c.handle != 0 && c.sched != nil {
		c.sched.CancelFrame(c.handle)
	}
	c.handle = 0
	c.running = false
}

func (c *Conductor) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Frames counts ticks so far.
func (c *Conductor) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *Conductor) onTick(now time.Time) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	snap := c.tickLocked(now)
	c.handle = c.sched.RequestFrame(c.onTick)
	fns := c.listenersLocked()
	c.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Close stops the loop and releases every event registration and frame
// listener. It is idempotent.
func (c *Conductor) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.closed = true
	subs := c.subs
	c.subs = nil
	clear(c.onFrame)
	c.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(hi, math.Max(lo, v))
}
