package app

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/frame"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render/kage"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render/soft"
	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// maxStep bounds the sequencer advance after a stall.
const maxStep = 0.25

// Core is one running visualizer: both layers, their conductor, the show
// player and, when the layers can be read back, a compositor.
type Core struct {
	Cfg    *config.Config
	Cond   *choreo.Conductor
	Comp   *render.Compositor
	Seq    *sequence.SafePlayer
	Show   *Show
	Events *frame.Events
	Queue  *frame.Queue
	Surf   *Surface

	backends [2]render.Backend
	logger   zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

// HostConfig is what the embedding host provides. Zero fields fall back to
// the config: a window-sized surface and backends of the configured kind.
type HostConfig struct {
	Surface  *Surface
	Backends [2]render.Backend // indexed by choreo.Layer
	Driver   render.Driver
	// Compositor output size; zero disables composition.
	FrameW, FrameH int
	Logger         *zerolog.Logger
}

// NewBackend builds a graphics context of the configured kind.
func NewBackend(kind string, workers int) render.Backend {
	if kind == config.BackendSoft {
		return soft.New(workers)
	}
	return kage.New()
}

func InitCore(cfg *config.Config, host HostConfig) (*Core, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := log.Logger
	if host.Logger != nil {
		logger = *host.Logger
	}

	// 1) Mount surface and graphics contexts
	surf := host.Surface
	if surf == nil {
		surf = NewSurface(float64(cfg.Window.Width), float64(cfg.Window.Height), cfg.Window.DPR)
	}
	backends := host.Backends
	for i := range backends {
		if backends[i] == nil {
			backends[i] = NewBackend(cfg.Backend, cfg.Workers)
		}
	}

	// 2) Renderers
	var specs [2]choreo.LayerSpec
	for _, l := range choreo.Layers() {
		opts := cfg.LayerOptions(l)
		opts.Logger = &logger
		specs[l] = choreo.LayerSpec{Renderer: render.New(surf, backends[l], opts)}
	}

	// 3) Conductor on a host-pumped frame queue
	q := frame.NewQueue()
	ev := frame.NewEvents()
	policy := cfg.Policy
	cond := choreo.New(choreo.Options{
		Primary:   specs[choreo.Primary],
		Accent:    specs[choreo.Accent],
		Policy:    &policy,
		Scheduler: q,
		Logger:    &logger,
	})
	cond.Attach(ev)

	c := &Core{
		Cfg:      cfg,
		Cond:     cond,
		Events:   ev,
		Queue:    q,
		Surf:     surf,
		backends: backends,
		logger:   logger,
	}

	if cfg.Stage != "" {
		if err := c.ApplyPreset(cfg.Stage); err != nil {
			cond.Close()
			return nil, err
		}
	}

	// 4) Compositor, only when every layer can be read back
	if host.FrameW > 0 && host.FrameH > 0 {
		var sources []render.Source
		for _, be := range backends {
			if s, ok := be.(render.Source); ok {
				sources = append(sources, s)
			}
		}
		if len(sources) == len(backends) {
			comp, err := render.NewCompositor(host.FrameW, host.FrameH, host.Driver, sources...)
			if err != nil {
				cond.Close()
				return nil, err
			}
			comp.UseFilmicPost(render.ToneMap{ExposureEV: cfg.ToneMap.ExposureEV, Gamma: cfg.ToneMap.Gamma})
			c.Comp = comp
		} else {
			logger.Warn().Str("backend", cfg.Backend).Msg("layers cannot be read back; composition disabled")
		}
	}

	// 5) Sequencer wiring (hooks → conductor)
	c.Show = NewShow(cond, logger)
	c.Seq = sequence.NewSafePlayer(c.Show.Hooks())
	if cfg.Program != "" {
		prog, err := sequence.LoadFile(cfg.Program)
		if err != nil {
			cond.Close()
			return nil, fmt.Errorf("program %s: %w", cfg.Program, err)
		}
		var lerr error
		c.Seq.With(func(p *sequence.Player) {
			if lerr = p.Load(prog); lerr == nil {
				p.Start()
			}
		})
		if lerr != nil {
			cond.Close()
			return nil, fmt.Errorf("program %s: %w", cfg.Program, lerr)
		}
	}

	for _, d := range cond.Diagnostics() {
		logger.Warn().Str("code", d.Code).Msg(d.Summary)
	}
	cond.Start()
	return c, nil
}

// ApplyPreset makes a named phase preset the stage target.
func (c *Core) ApplyPreset(name string) error {
	cfg, ok := stage.Preset(name)
	if !ok {
		return fmt.Errorf("unknown stage preset %q", name)
	}
	c.Cond.UpdateForStage(cfg)
	return nil
}

// Frame advances the show by the wall time since the previous frame, runs
// the pending conductor tick and composites the layers.
func (c *Core) Frame(now time.Time) error {
	c.mu.Lock()
	dt := 0.0
	if !c.last.IsZero() {
		dt = now.Sub(c.last).Seconds()
	}
	c.last = now
	c.mu.Unlock()
	if dt > maxStep {
		dt = maxStep
	}
	if dt > 0 {
		c.Seq.With(func(p *sequence.Player) { p.Tick(dt) })
	}
	c.Queue.Fire(now)
	if c.Comp != nil {
		return c.Comp.ComposeOnce()
	}
	return nil
}

// Run drives Frame at fps until ctx is done.
func (c *Core) Run(ctx context.Context, fps int) error {
	tk := frame.NewTicker(fps)
	defer tk.Close()
	var loop frame.Callback
	loop = func(now time.Time) {
		if ctx.Err() != nil {
			return
		}
		if err := c.Frame(now); err != nil {
			c.logger.Warn().Err(err).Msg("frame output failed")
		}
		tk.RequestFrame(loop)
	}
	tk.RequestFrame(loop)
	<-ctx.Done()
	return nil
}

// Resize updates the mount box and notifies the layers.
func (c *Core) Resize(w, h float64) {
	c.Surf.SetSize(w, h)
	c.Events.EmitResize()
}

// ApplyConfig takes the hot-reloadable parts of a new config: the policy,
// the lerp factors and the tone map.
func (c *Core) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.Cond.SetPolicy(cfg.Policy)
	c.Cond.SetLerp(choreo.Primary, cfg.Primary.Lerp)
	c.Cond.SetLerp(choreo.Accent, cfg.Accent.Lerp)
	if c.Comp != nil {
		c.Comp.UseFilmicPost(render.ToneMap{ExposureEV: cfg.ToneMap.ExposureEV, Gamma: cfg.ToneMap.Gamma})
	}
	c.logger.Info().Str("code", diag.CodeReloaded).Msg("config applied")
}

// Backend returns the graphics context of a layer.
func (c *Core) Backend(l choreo.Layer) render.Backend {
	if l != choreo.Primary && l != choreo.Accent {
		return nil
	}
	return c.backends[l]
}

// Snapshot copies the last composited frame to an 8-bit image, or nil
// when there is no compositor.
func (c *Core) Snapshot() *image.RGBA {
	if c.Comp == nil {
		return nil
	}
	f := c.Comp.Frame()
	return render.ToImage(f.Pix, f.W, f.H)
}

func (c *Core) Close() {
	c.Seq.With(func(p *sequence.Player) { p.Stop() })
	c.Cond.Close()
}
