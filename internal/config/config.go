package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

const (
	BackendKage = "kage"
	BackendSoft = "soft"
)

type Window struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Title  string  `yaml:"title"`
	DPR    float64 `yaml:"dpr"` // device pixel ratio reported to the renderers
}

// Layer overrides one visual layer's renderer options.
type Layer struct {
	Lerp     float64            `yaml:"lerp"`
	DPRLimit float64            `yaml:"dpr_limit"`
	Initial  map[string]float64 `yaml:"initial,omitempty"`
}

type Serve struct {
	Addr   string `yaml:"addr"`
	FrameW int    `yaml:"frame_w"`
	FrameH int    `yaml:"frame_h"`
	FPS    int    `yaml:"frame_fps"`
}

type Terminal struct {
	FPS int `yaml:"fps"`
}

type ToneMap struct {
	ExposureEV float64 `yaml:"exposure_ev"`
	Gamma      float64 `yaml:"gamma"`
}

type Config struct {
	LogLevel string `yaml:"log_level"` // zerolog level name
	FPS      int    `yaml:"fps"`
	Backend  string `yaml:"backend"` // "kage" | "soft"
	Workers  int    `yaml:"workers"`

	Window  Window        `yaml:"window"`
	Primary Layer         `yaml:"primary"`
	Accent  Layer         `yaml:"accent"`
	Policy  choreo.Policy `yaml:"policy"`
	ToneMap ToneMap       `yaml:"tone_map"`

	Stage   string `yaml:"stage,omitempty"`   // preset applied at startup
	Program string `yaml:"program,omitempty"` // show file played at startup

	// Cards are scroll tracks addressable by name from the hosts.
	Cards []stage.Track `yaml:"cards,omitempty"`

	Serve    Serve    `yaml:"serve"`
	Terminal Terminal `yaml:"terminal"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	p, a := choreo.LayerOptions(choreo.Primary), choreo.LayerOptions(choreo.Accent)
	return &Config{
		LogLevel: "info",
		FPS:      60,
		Backend:  BackendKage,
		Window:   Window{Width: 960, Height: 540, Title: "hyperlattice", DPR: 1},
		Primary:  Layer{Lerp: p.LerpFactor, DPRLimit: p.DPRLimit},
		Accent:   Layer{Lerp: a.LerpFactor, DPRLimit: a.DPRLimit},
		Policy:   choreo.DefaultPolicy(),
		ToneMap:  ToneMap{ExposureEV: 0, Gamma: 2.2},
		Serve:    Serve{Addr: ":8080", FrameW: 96, FrameH: 54, FPS: 20},
		Terminal: Terminal{FPS: 30},
	}
}

// Load reads a yaml file over Default, so absent keys keep their default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate rejects values that cannot be repaired by falling back to a
// default.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", BackendKage, BackendSoft:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config: log_level: %w", err)
		}
	}
	for name, l := range map[string]Layer{"primary": c.Primary, "accent": c.Accent} {
		for k := range l.Initial {
			if _, ok := params.Lookup(k); !ok {
				return fmt.Errorf("config: %s.initial: unknown parameter %q", name, k)
			}
		}
	}
	seen := map[string]bool{}
	for i, t := range c.Cards {
		if t.Name == "" {
			return fmt.Errorf("config: cards[%d]: missing name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("config: cards: duplicate name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Card finds a scroll track by name.
func (c *Config) Card(name string) (stage.Track, bool) {
	for _, t := range c.Cards {
		if t.Name == name {
			return t, true
		}
	}
	return stage.Track{}, false
}

func (c *Config) normalize() {
	d := Default()
	c.Backend = strings.ToLower(c.Backend)
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	c.FPS = firstPositive(c.FPS, d.FPS)
	c.Window.Width = firstPositive(c.Window.Width, d.Window.Width)
	c.Window.Height = firstPositive(c.Window.Height, d.Window.Height)
	c.Window.DPR = firstNonZeroFloat(c.Window.DPR, d.Window.DPR)
	if c.Window.Title == "" {
		c.Window.Title = d.Window.Title
	}
	c.Primary.Lerp = firstNonZeroFloat(c.Primary.Lerp, d.Primary.Lerp)
	c.Primary.DPRLimit = firstNonZeroFloat(c.Primary.DPRLimit, d.Primary.DPRLimit)
	c.Accent.Lerp = firstNonZeroFloat(c.Accent.Lerp, d.Accent.Lerp)
	c.Accent.DPRLimit = firstNonZeroFloat(c.Accent.DPRLimit, d.Accent.DPRLimit)
	c.ToneMap.Gamma = firstNonZeroFloat(c.ToneMap.Gamma, d.ToneMap.Gamma)
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	c.Serve.FrameW = firstPositive(c.Serve.FrameW, d.Serve.FrameW)
	c.Serve.FrameH = firstPositive(c.Serve.FrameH, d.Serve.FrameH)
	c.Serve.FPS = firstPositive(c.Serve.FPS, d.Serve.FPS)
	c.Terminal.FPS = firstPositive(c.Terminal.FPS, d.Terminal.FPS)
}

// Level is the configured log level, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) layer(l choreo.Layer) Layer {
	if l == choreo.Accent {
		return c.Accent
	}
	return c.Primary
}

// LayerOptions is the layer's built-in renderer options with the
// configured overrides applied.
func (c *Config) LayerOptions(l choreo.Layer) render.Options {
	opts := choreo.LayerOptions(l)
	lc := c.layer(l)
	opts.LerpFactor = firstNonZeroFloat(lc.Lerp, opts.LerpFactor)
	opts.DPRLimit = firstNonZeroFloat(lc.DPRLimit, opts.DPRLimit)
	if len(lc.Initial) > 0 {
		extra, _ := params.ParseFloats(lc.Initial)
		merged := opts.Initial.Clone()
		if merged == nil {
			merged = params.Partial{}
		}
		for n, v := range extra {
			merged[n] = v
		}
		opts.Initial = merged
	}
	return opts
}

func firstNonZeroFloat(v, def float64) float64 {
	if v != 0 && params.Finite(v) {
		return v
	}
	return def
}

func firstPositive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
