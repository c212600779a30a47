// Package stage holds content-stage configurations: partial parameter sets a
// collaborator hands to the conductor as new base targets.
package stage

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

// Alias keys understood in addition to the parameter keys.
const (
	KeyAccentHue  = "accentHue"
	KeyAccentLift = "accentLift"
)

// Config is one stage: parameter overrides plus the accent aliases.
type Config struct {
	Params     params.Partial
	AccentHue  *float64
	AccentLift *float64

	skipped []string
}

// Parse accepts parameter keys and the accent aliases. Anything else, and
// any value that is not a finite number, is skipped and reported.
func Parse(in map[string]any) (Config, []string) {
	rest := make(map[string]any, len(in))
	var c Config
	var skipped []string
	for k, raw := range in {
		switch k {
		case KeyAccentHue, KeyAccentLift:
			v, ok := params.Number(raw)
			if !ok || !params.Finite(v) {
				skipped = append(skipped, k)
				continue
			}
			if k == KeyAccentHue {
				c.AccentHue = &v
			} else {
				c.AccentLift = &v
			}
		default:
			rest[k] = raw
		}
	}
	p, more := params.ParsePartial(rest)
	c.Params = p
	skipped = append(skipped, more...)
	sort.Strings(skipped)
	c.skipped = skipped
	return c, skipped
}

// FromPartial wraps a partial with no aliases.
func FromPartial(p params.Partial) Config { return Config{Params: p.Clone()} }

// Skipped lists the keys dropped when the config was parsed.
func (c Config) Skipped() []string { return c.skipped }

// Get returns a finite parameter value if the stage names it.
func (c Config) Get(n params.Name) (float64, bool) {
	if !c.Params.Has(n) {
		return 0, false
	}
	return c.Params[n], true
}

// GetOr is Get with a fallback.
func (c Config) GetOr(n params.Name, def float64) float64 {
	if v, ok := c.Get(n); ok {
		return v
	}
	return def
}

// With returns a copy of c with n set to v.
func (c Config) With(n params.Name, v float64) Config {
	out := c.Clone()
	if out.Params == nil {
		out.Params = params.Partial{}
	}
	out.Params[n] = v
	return out
}

func (c Config) Clone() Config {
	out := Config{Params: c.Params.Clone(), skipped: append([]string(nil), c.skipped...)}
	if c.AccentHue != nil {
		v := *c.AccentHue
		out.AccentHue = &v
	}
	if c.AccentLift != nil {
		v := *c.AccentLift
		out.AccentLift = &v
	}
	return out
}

// Merge overlays o onto c; o wins wherever it names a value.
func (c Config) Merge(o Config) Config {
	out := c.Clone()
	if out.Params == nil {
		out.Params = params.Partial{}
	}
	for n, v := range o.Params {
		out.Params[n] = v
	}
	if o.AccentHue != nil {
		v := *o.AccentHue
		out.AccentHue = &v
	}
	if o.AccentLift != nil {
		v := *o.AccentLift
		out.AccentLift = &v
	}
	return out
}

// Blend interpolates from a to b by alpha in [0,1]. A parameter named on
// only one side is taken from the defaults on the other; an alias set on
// only one side is held at that side's value.
func Blend(a, b Config, alpha float64) Config {
	alpha = clamp01(alpha)
	switch alpha {
	case 0:
		return a.Clone()
	case 1:
		return b.Clone()
	}
	def := params.Defaults()
	out := Config{Params: params.Partial{}}
	for _, n := range params.Names() {
		va, okA := a.Get(n)
		vb, okB := b.Get(n)
		if !okA && !okB {
			continue
		}
		if !okA {
			va = def[n]
		}
		if !okB {
			vb = def[n]
		}
		out.Params[n] = va + (vb-va)*alpha
	}
	out.AccentHue = blendAlias(a.AccentHue, b.AccentHue, alpha)
	out.AccentLift = blendAlias(a.AccentLift, b.AccentLift, alpha)
	return out
}

func blendAlias(a, b *float64, alpha float64) *float64 {
	var v float64
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v = *b
	case b == nil:
		v = *a
	default:
		v = *a + (*b-*a)*alpha
	}
	return &v
}

func (c Config) Empty() bool {
	return len(c.Params) == 0 && c.AccentHue == nil && c.AccentLift == nil
}

// Map renders c with string keys, for json, yaml and logs.
func (c Config) Map() map[string]any {
	m := make(map[string]any, len(c.Params)+2)
	for n, v := range c.Params {
		m[n.Key()] = v
	}
	if c.AccentHue != nil {
		m[KeyAccentHue] = *c.AccentHue
	}
	if c.AccentLift != nil {
		m[KeyAccentLift] = *c.AccentLift
	}
	return m
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*c, _ = Parse(raw)
	return nil
}

func (c Config) MarshalYAML() (any, error) { return c.Map(), nil }
