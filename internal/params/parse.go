package params

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Range is the typical working range of a parameter. Unbounded ranges have
// Min > Max.
type Range struct {
	Min, Max float64
	Wrap     bool
}

var ranges = [Count]Range{
	Geometry:    {Min: 0.5, Max: 3.0},
	GridDensity: {Min: 12, Max: 85},
	Chaos:       {Min: 0.02, Max: 0.45},
	Speed:       {Min: 0.05, Max: 2.5},
	Hue:         {Min: 0, Max: 1, Wrap: true},
	Intensity:   {Min: 0.1, Max: 1.2},
	Saturation:  {Min: 0, Max: 1},
	Morph:       {Min: 0.3, Max: 2.5},
	Rot4dXW:     {Min: 1, Max: -1},
	Rot4dYW:     {Min: 1, Max: -1},
	Rot4dZW:     {Min: 1, Max: -1},
	Parallax:    {Min: -1, Max: 1},
}

// RangeOf returns the typical range for n.
func RangeOf(n Name) Range { return ranges[n] }

func (r Range) Bounded() bool { return r.Min <= r.Max }

// Clamp bounds v to the range; hue wraps into [0,1).
func (r Range) Clamp(v float64) float64 {
	switch {
	case !r.Bounded():
		return v
	case r.Wrap:
		span := r.Max - r.Min
		return v - span*math.Floor((v-r.Min)/span)
	case v < r.Min:
		return r.Min
	case v > r.Max:
		return r.Max
	}
	return v
}

// ParsePartial converts string-keyed input (yaml, json, control messages)
// into a Partial. Unknown keys and values that are not finite numbers are
// dropped and returned in skipped, sorted.
func ParsePartial(in map[string]any) (p Partial, skipped []string) {
	p = Partial{}
	for k, raw := range in {
		n, ok := Lookup(k)
		if !ok {
			skipped = append(skipped, k)
			continue
		}
		v, ok := Number(raw)
		if !ok || !Finite(v) {
			skipped = append(skipped, k)
			continue
		}
		p[n] = v
	}
	sort.Strings(skipped)
	return p, skipped
}

// ParseFloats is ParsePartial for already-numeric maps.
func ParseFloats(in map[string]float64) (Partial, []string) {
	m := make(map[string]any, len(in))
	for k, v := range in {
		m[k] = v
	}
	return ParsePartial(m)
}

// Number accepts the numeric shapes produced by yaml.v3 and encoding/json.
func Number(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
