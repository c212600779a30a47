package sequence

import (
	"errors"
	"math"
	"sort"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{
		State:      Idle,
		hooks:      h,
		armedIndex: -1,
	}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return errors.New("program has no clips")
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	return nil
}

// Program returns the loaded program.
func (p *Player) Program() Program { return p.prog }

// Start moves to Running and primes the current clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.enterClip()
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
	if p.hooks.SetCrossfade != nil {
		p.hooks.SetCrossfade(0)
	}
}

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	total := p.totalDuration()
	if total > 0 && t >= total {
		// Clamp to just before end
		t = math.Nextafter(total, -1)
	}
	// Find clip index and local time
	acc := 0.0
	idx := 0
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	p.idx = idx
	p.nowS = t
	p.enterClip()
}

// Position is the time within the program and the active clip index.
func (p *Player) Position() (seconds float64, clip int) { return p.nowS, p.idx }

// Tick advances the sequencer by dt seconds and emits control hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 {
		return
	}
	if dt <= 0 {
		return
	}
	p.nowS += dt

	clip, localT := p.currentClipAndLocalT()
	// Evaluate params/bools for the active clip, in a stable order so
	// tilt components land together.
	if p.hooks.SetParam != nil {
		for _, name := range sortedKeys(clip.Params) {
			p.hooks.SetParam(name, clip.Params[name].Eval(localT))
		}
	}
	if p.hooks.SetBool != nil {
		for _, name := range sortedKeys(clip.Bools) {
			p.hooks.SetBool(name, clip.Bools[name].BoolEval(localT))
		}
	}
	// Crossfade logic
	if clip.XFadeS > 0 {
		remain := clip.DurationS - localT
		if remain <= clip.XFadeS && remain >= 0 {
			// Arm next once
			nextIdx := p.nextIndex()
			if !p.armed && nextIdx != -1 && p.hooks.ArmNext != nil {
				nc := p.prog.Clips[nextIdx]
				p.hooks.ArmNext(nc.Name, nc.StageConfig())
				p.armed = true
				p.armedIndex = nextIdx
			}
			// Alpha 0..1 over [Duration-XFade, Duration]
			alpha := clamp01(1.0 - (remain / clip.XFadeS))
			if p.armed && p.hooks.SetCrossfade != nil && alpha != p.lastAlpha {
				p.hooks.SetCrossfade(alpha)
				p.lastAlpha = alpha
			}
		}
	}

	// Clip end?
	if localT >= clip.DurationS {
		p.advanceClip()
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	localT := p.nowS - acc
	return p.prog.Clips[p.idx], localT
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) nextIndex() int {
	if len(p.prog.Clips) == 0 {
		return -1
	}
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

func (p *Player) advanceClip() {
	next := p.nextIndex()
	if next == -1 {
		// End of program
		p.State = Idle
		if p.hooks.SetCrossfade != nil && p.armed {
			p.hooks.SetCrossfade(0)
		}
		return
	}
	if next == 0 {
		p.nowS -= p.totalDuration()
		if p.nowS < 0 {
			p.nowS = 0
		}
	}
	p.idx = next
	p.enterClip()
}

// enterClip snaps the active stage to the current clip and resets the fade.
func (p *Player) enterClip() {
	clip := p.prog.Clips[p.idx]
	if p.hooks.SetStage != nil {
		p.hooks.SetStage(clip.Name, clip.StageConfig())
	}
	if p.hooks.SetCrossfade != nil {
		p.hooks.SetCrossfade(0)
	}
	p.armed = false
	p.armedIndex = -1
	p.lastAlpha = 0
}

func sortedKeys(m map[string]Envelope) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Lightweight synchronization helpers ---

func NewSafePlayer(h Hooks) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
