package ws

import (
	"sort"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	diag "github.com/coreman2200/funtimes-hyperlattice/internal/diagnostics"
	"github.com/coreman2200/funtimes-hyperlattice/internal/frame"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// Control message keys. A message may carry any number of them; they are
// applied in a fixed order.
const (
	KeyPreset       = "preset"
	KeyStage        = "stage"
	KeyTargets      = "targets"
	KeyLayer        = "layer"
	KeyScroll       = "scroll"
	KeyTilt         = "tilt"
	KeyEngage       = "engage"
	KeyPointer      = "pointer"
	KeyResize       = "resize"
	KeyLerp         = "lerp"
	KeyPlayer       = "player"
	KeySeek         = "seek"
	KeySave         = "save"
	KeyCard         = "card"
	KeyFocus        = "focus"
	playerStart     = "start"
	playerPause     = "pause"
	playerResume    = "resume"
	playerStop      = "stop"
	pointerLeaveVal = "leave"
)

var controlKeys = map[string]bool{
	KeyPreset: true, KeyStage: true, KeyTargets: true, KeyLayer: true,
	KeyScroll: true, KeyTilt: true, KeyEngage: true, KeyPointer: true,
	KeyResize: true, KeyLerp: true, KeyPlayer: true, KeySeek: true, KeySave: true,
	KeyCard: true, KeyFocus: true,
}

func (s *State) applyControl(msg map[string]any) {
	c := s.Core
	var skipped []string
	for k := range msg {
		if !controlKeys[k] {
			skipped = append(skipped, k)
		}
	}

	if v, ok := msg[KeyPreset].(string); ok {
		if err := c.ApplyPreset(v); err != nil {
			s.badMessage(KeyPreset, err.Error(), map[string]any{"name": v, "known": stage.PresetNames()})
		} else {
			s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeStage, Summary: "Preset applied", Detail: v})
			s.mu.Lock()
			if c.Cfg != nil {
				c.Cfg.Stage = v
			}
			s.mu.Unlock()
		}
	}
	if v, ok := msg[KeyStage].(map[string]any); ok {
		cfg, more := stage.Parse(v)
		skipped = append(skipped, prefixed(KeyStage, more)...)
		if !cfg.Empty() {
			c.Cond.UpdateForStage(cfg)
			s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeStage, Summary: "Stage applied", Evidence: cfg.Map()})
		}
	}
	if v, ok := msg[KeyTargets].(map[string]any); ok {
		p, more := params.ParsePartial(v)
		skipped = append(skipped, prefixed(KeyTargets, more)...)
		if name, ok := msg[KeyLayer].(string); ok {
			if l, ok := choreo.ParseLayer(name); ok {
				c.Cond.UpdateTargets(l, p)
			} else {
				s.badMessage(KeyLayer, "unknown layer", map[string]any{"layer": name})
			}
		} else {
			c.Cond.UpdateAll(p)
		}
	}
	if v, ok := msg[KeyCard].(map[string]any); ok {
		name, _ := v["name"].(string)
		progress, okP := params.Number(v["progress"])
		if !okP {
			skipped = append(skipped, KeyCard)
		} else if _, err := c.ScrollCard(name, progress); err != nil {
			s.badMessage(KeyCard, err.Error(), map[string]any{"name": name})
		}
	}
	if v, ok := msg[KeyFocus].(map[string]any); ok {
		s.applyFocus(v)
	}
	if v, ok := msg[KeyScroll]; ok {
		if f, ok := params.Number(v); ok {
			c.Cond.SetScrollProgress(f)
		} else {
			skipped = append(skipped, KeyScroll)
		}
	}
	if v, ok := msg[KeyEngage].(bool); ok {
		if v {
			c.Cond.TiltEngage()
		} else {
			c.Cond.TiltRelease()
		}
	}
	if v, ok := msg[KeyTilt].(map[string]any); ok {
		x, _ := params.Number(v["x"])
		y, _ := params.Number(v["y"])
		m, _ := params.Number(v["magnitude"])
		c.Cond.TiltTo(x, y, m)
	}
	switch v := msg[KeyPointer].(type) {
	case map[string]any:
		x, okX := params.Number(v["x"])
		y, okY := params.Number(v["y"])
		if okX && okY {
			c.Events.EmitPointer(frame.PointerEvent{X: x, Y: y, Inside: true})
		} else {
			skipped = append(skipped, KeyPointer)
		}
	case string:
		if v == pointerLeaveVal {
			c.Events.EmitPointer(frame.PointerEvent{})
		} else {
			skipped = append(skipped, KeyPointer)
		}
	}
	if v, ok := msg[KeyResize].(map[string]any); ok {
		w, okW := params.Number(v["w"])
		h, okH := params.Number(v["h"])
		if okW && okH && w > 0 && h > 0 {
			c.Resize(w, h)
		} else {
			skipped = append(skipped, KeyResize)
		}
	}
	if v, ok := msg[KeyLerp].(map[string]any); ok {
		for name, raw := range v {
			l, okL := choreo.ParseLayer(name)
			f, okF := params.Number(raw)
			if !okL || !okF {
				skipped = append(skipped, KeyLerp+"."+name)
				continue
			}
			c.Cond.SetLerp(l, f)
		}
	}
	if v, ok := msg[KeySeek]; ok {
		if f, ok := params.Number(v); ok {
			c.Seq.With(func(p *sequence.Player) { p.Seek(f) })
		} else {
			skipped = append(skipped, KeySeek)
		}
	}
	if v, ok := msg[KeyPlayer].(string); ok {
		s.playerCommand(v)
	}

	if len(skipped) > 0 {
		sort.Strings(skipped)
		s.pushDiag(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.CodeSkipped, Summary: "Ignored control keys",
			Evidence: map[string]any{"keys": skipped},
		})
	}
	if v, ok := msg[KeySave].(bool); ok && v {
		s.saveConfig()
	}
}

// applyFocus takes either a strength or a distance from the centre of
// attention with the distance at which focus fades out.
func (s *State) applyFocus(v map[string]any) {
	name, _ := v["name"].(string)
	strength, ok := params.Number(v["strength"])
	if !ok {
		d, okD := params.Number(v["distance"])
		limit, okM := params.Number(v["max"])
		if !okD || !okM {
			s.badMessage(KeyFocus, "focus needs strength or distance and max", map[string]any{"name": name})
			return
		}
		strength = stage.FocusStrength(d, limit)
	}
	if _, err := s.Core.FocusCard(name, strength); err != nil {
		s.badMessage(KeyFocus, err.Error(), map[string]any{"name": name})
	}
}

func (s *State) playerCommand(cmd string) {
	ok := true
	s.Core.Seq.With(func(p *sequence.Player) {
		switch cmd {
		case playerStart:
			p.Start()
		case playerPause:
			p.Pause()
		case playerResume:
			p.Resume()
		case playerStop:
			p.Stop()
		default:
			ok = false
		}
	})
	if !ok {
		s.badMessage(KeyPlayer, "unknown player command", map[string]any{"command": cmd})
	}
}

func (s *State) badMessage(key, summary string, ev map[string]any) {
	s.pushDiag(diag.Diagnostic{
		Severity: diag.Warn, Code: diag.CodeBadMessage, Summary: summary, Detail: key, Evidence: ev,
	})
}

func prefixed(prefix string, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = prefix + "." + k
	}
	return out
}
