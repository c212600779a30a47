package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// Show routes sequencer hooks into a Conductor: clip stages become stage
// targets, crossfades blend the active and armed stage, and automation
// lanes drive scroll, tilt and raw parameters.
type Show struct {
	mu     sync.Mutex
	cond   *choreo.Conductor
	logger zerolog.Logger

	active, next         stage.Config
	activeName, nextName string
	armed                bool
	alpha                float64

	tiltX, tiltY, tiltMag float64
	tiltAuto              bool
}

// ShowStatus is the bridge state reported to control clients.
type ShowStatus struct {
	Active    string  `json:"active"`
	Armed     string  `json:"armed,omitempty"`
	Crossfade float64 `json:"crossfade"`
	Engaged   bool    `json:"engaged"`
}

func NewShow(cond *choreo.Conductor, logger zerolog.Logger) *Show {
	return &Show{cond: cond, logger: logger.With().Str("component", "show").Logger()}
}

// Hooks returns the sequencer callbacks bound to s.
func (s *Show) Hooks() sequence.Hooks {
	return sequence.Hooks{
		SetStage:     s.setStage,
		ArmNext:      s.armNext,
		SetCrossfade: s.setCrossfade,
		SetParam:     s.setParam,
		SetBool:      s.setBool,
	}
}

func (s *Show) setStage(name string, cfg stage.Config) {
	s.mu.Lock()
	s.active, s.activeName = cfg.Clone(), name
	s.armed, s.alpha = false, 0
	s.mu.Unlock()
	s.cond.UpdateForStage(cfg)
	s.logger.Debug().Str("clip", name).Msg("stage")
}

func (s *Show) armNext(name string, cfg stage.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next, s.nextName = cfg.Clone(), name
	s.armed = true
}

func (s *Show) setCrossfade(alpha float64) {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	s.alpha = alpha
	cfg := stage.Blend(s.active, s.next, alpha)
	if alpha <= 0 {
		s.armed = false
		s.nextName = ""
	}
	s.mu.Unlock()
	s.cond.UpdateForStage(cfg)
}

func (s *Show) setParam(name string, v float64) {
	switch name {
	case sequence.ParamScroll:
		s.cond.SetScrollProgress(v)
		return
	case sequence.ParamTiltX, sequence.ParamTiltY, sequence.ParamTiltMagnitude:
		s.mu.Lock()
		switch name {
		case sequence.ParamTiltX:
			s.tiltX = v
		case sequence.ParamTiltY:
			s.tiltY = v
		default:
			s.tiltMag = v
		}
		s.tiltAuto = true
		x, y, m := s.tiltX, s.tiltY, s.tiltMag
		s.mu.Unlock()
		s.cond.TiltTo(x, y, m)
		return
	}
	n, ok := params.Lookup(name)
	if !ok {
		s.logger.Debug().Str("param", name).Msg("ignoring unknown automation target")
		return
	}
	s.cond.UpdateAll(params.Partial{n: v})
}

// setBool acts on transitions only; envelopes report their level every tick.
func (s *Show) setBool(name string, b bool) {
	if name != sequence.BoolEngage || b == s.cond.Engaged() {
		return
	}
	if !b {
		s.cond.TiltRelease()
		return
	}
	s.cond.TiltEngage()
	s.mu.Lock()
	x, y, m, auto := s.tiltX, s.tiltY, s.tiltMag, s.tiltAuto
	s.mu.Unlock()
	if auto {
		s.cond.TiltTo(x, y, m)
	}
}

func (s *Show) Status() ShowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ShowStatus{Active: s.activeName, Crossfade: s.alpha, Engaged: s.cond.Engaged()}
	if s.armed {
		st.Armed = s.nextName
	}
	return st
}
