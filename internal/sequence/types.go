package sequence

import (
	"sync"

	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe
}

// Envelope targets understood by the conductor bridge, besides parameter
// keys.
const (
	ParamScroll        = "scroll"
	ParamTiltX         = "tiltX"
	ParamTiltY         = "tiltY"
	ParamTiltMagnitude = "tiltMagnitude"
	BoolEngage         = "engage"
)

// Clip is one segment of a show: selects a stage (a preset, inline overrides
// or both), sets duration, optional crossfade into the NEXT clip, and
// automates scroll, tilt and parameters.
type Clip struct {
	Name      string              `yaml:"name"`
	Preset    string              `yaml:"preset,omitempty"`
	Stage     stage.Config        `yaml:"stage,omitempty"`
	DurationS float64             `yaml:"duration_s"`
	XFadeS    float64             `yaml:"xfade_s,omitempty"`
	Params    map[string]Envelope `yaml:"params,omitempty"` // numeric targets over time
	Bools     map[string]Envelope `yaml:"bools,omitempty"`  // 0..1 thresholded to bool
}

// StageConfig is the clip's preset with its inline overrides on top.
func (c Clip) StageConfig() stage.Config {
	cfg, _ := stage.Preset(c.Preset)
	return cfg.Merge(c.Stage)
}

// Program is a full sequence of clips.
type Program struct {
	Version string `yaml:"version"` // e.g., "seq.v1"
	Loop    bool   `yaml:"loop,omitempty"`
	Clips   []Clip `yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the conductor.
type Hooks struct {
	// Make a clip's stage the active one immediately.
	SetStage func(name string, cfg stage.Config)
	// Scroll, tilt and parameter automation for the active clip.
	SetParam func(name string, v float64)
	SetBool  func(name string, b bool)
	// Prepare the next clip's stage for crossfade.
	ArmNext      func(name string, cfg stage.Config)
	SetCrossfade func(alpha float64) // 0..1 mix between active and armed
}

// Player owns the current Program timeline and uses Hooks to drive the
// conductor.
type Player struct {
	State PlayerState

	prog Program
	nowS float64 // position within program
	idx  int     // current clip index

	// crossfade bookkeeping
	armedIndex int  // which clip is armed next (-1 means none)
	armed      bool // whether next is armed
	lastAlpha  float64

	// injection
	hooks Hooks
}

// SafePlayer serializes access to a Player shared between the frame loop
// and control handlers.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}
