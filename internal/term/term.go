// Package term hosts the visualizer in a terminal: each cell shows two
// pixels as an upper half block, mouse motion tilts the lattice and the
// wheel scrolls.
package term

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/frame"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

const (
	upperHalf  = '▀'
	scrollStep = 0.05
)

// Host draws composited frames to a tcell screen and turns terminal input
// into conductor calls. The bottom row is a status line.
type Host struct {
	mu     sync.Mutex
	screen tcell.Screen
	core   *app.Core
	cols   int
	rows   int
	status string

	sub     *frame.Subscription
	density float64
	hue     float64
}

func New(screen tcell.Screen) *Host {
	h := &Host{screen: screen}
	h.cols, h.rows = screen.Size()
	return h
}

// Bind attaches the core the host drives. The core's compositor must write
// to h.
// Bind attaches the host to core and follows the primary layer's drawn
// parameters for the status line.
func (h *Host) Bind(core *app.Core) {
	if h.sub != nil {
		h.sub.Unsubscribe()
	}
	h.core = core
	h.sub = core.Cond.OnFrame(func(s choreo.Snapshot) {
		cur := s.Current[choreo.Primary]
		h.mu.Lock()
		h.density, h.hue = cur[params.GridDensity], cur[params.Hue]
		h.mu.Unlock()
	})
}

// FrameSize is the pixel size a compositor should render for the current
// screen: one column per cell, two rows per cell above the status line.
func (h *Host) FrameSize() (w, ht int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameSizeLocked()
}

func (h *Host) frameSizeLocked() (int, int) {
	rows := h.rows - 1
	if rows < 1 {
		rows = 1
	}
	return max(1, h.cols), rows * 2
}

// Write implements render.Driver.
func (h *Host) Write(f render.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cy := 0; cy*2 < f.H && cy < h.rows-1; cy++ {
		for x := 0; x < f.W && x < h.cols; x++ {
			top := render.To8(f.Pix[(cy*2)*f.W+x])
			bot := top
			if cy*2+1 < f.H {
				bot = render.To8(f.Pix[(cy*2+1)*f.W+x])
			}
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bot.R), int32(bot.G), int32(bot.B)))
			h.screen.SetContent(x, cy, upperHalf, nil, style)
		}
	}
	h.drawStatusLocked()
	h.screen.Show()
	return nil
}

func (h *Host) drawStatusLocked() {
	y := h.rows - 1
	if y < 0 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorBlack)
	x := 0
	for _, r := range h.status {
		if x >= h.cols {
			break
		}
		h.screen.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < h.cols; x++ {
		h.screen.SetContent(x, y, ' ', nil, style)
	}
}

func (h *Host) refreshStatus() {
	if h.core == nil {
		return
	}
	st := h.core.Show.Status()
	stageName := h.core.Cfg.Stage
	if st.Active != "" {
		stageName = st.Active
	}
	if stageName == "" {
		stageName = "-"
	}
	engaged := ""
	if h.core.Cond.Engaged() {
		engaged = " engaged"
	}
	h.mu.Lock()
	h.status = fmt.Sprintf(" %s  scroll %3.0f%%%s  grid %.1f hue %.2f  [1-7] stage  wheel scroll  click engage  q quit",
		stageName, h.core.Cond.ScrollProgress()*100, engaged, h.density, h.hue)
	h.mu.Unlock()
}

// Status returns the current status line.
func (h *Host) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (h *Host) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return h.handleKey(ev)
	case *tcell.EventMouse:
		h.handleMouse(ev)
	case *tcell.EventResize:
		h.handleResize()
	}
	return true
}

func (h *Host) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		h.scrollBy(-scrollStep)
	case tcell.KeyDown:
		h.scrollBy(scrollStep)
	case tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r == 'q':
			return false
		case r >= '1' && r <= '9':
			names := stage.PresetNames()
			if i := int(r - '1'); i < len(names) && h.core != nil {
				_ = h.core.ApplyPreset(names[i])
				h.core.Cfg.Stage = names[i]
			}
		case r == ' ' && h.core != nil:
			h.core.Seq.With(func(p *sequence.Player) {
				if p.State == sequence.Running {
					p.Pause()
				} else {
					p.Resume()
				}
			})
		}
	}
	h.refreshStatus()
	return true
}

func (h *Host) scrollBy(d float64) {
	if h.core == nil {
		return
	}
	h.core.Cond.SetScrollProgress(h.core.Cond.ScrollProgress() + d)
}

// handleMouse maps the cursor to [-1,1]² over the picture area. Button 1
// held engages the tilt.
func (h *Host) handleMouse(ev *tcell.EventMouse) {
	if h.core == nil {
		return
	}
	x, y := ev.Position()
	h.mu.Lock()
	fw, fh := h.frameSizeLocked()
	h.mu.Unlock()
	rows := fh / 2
	if x < 0 || x >= fw || y < 0 || y >= rows {
		h.core.Events.EmitPointer(frame.PointerEvent{})
		return
	}
	nx := (float64(x)+0.5)/float64(fw)*2 - 1
	ny := (float64(y)+0.5)/float64(rows)*2 - 1
	h.core.Events.EmitPointer(frame.PointerEvent{X: nx, Y: ny, Inside: true})

	btn := ev.Buttons()
	switch {
	case btn&tcell.WheelUp != 0:
		h.scrollBy(-scrollStep)
	case btn&tcell.WheelDown != 0:
		h.scrollBy(scrollStep)
	}
	held := btn&tcell.Button1 != 0
	if held != h.core.Cond.Engaged() {
		if held {
			h.core.Cond.TiltEngage()
		} else {
			h.core.Cond.TiltRelease()
		}
	}
	h.core.Cond.TiltTo(nx, ny, math.Min(1, math.Hypot(nx, ny)))
	h.refreshStatus()
}

func (h *Host) handleResize() {
	h.screen.Sync()
	cols, rows := h.screen.Size()
	h.mu.Lock()
	h.cols, h.rows = cols, rows
	fw, fh := h.frameSizeLocked()
	h.mu.Unlock()
	if h.core == nil {
		return
	}
	if h.core.Comp != nil {
		h.core.Comp.Resize(fw, fh)
	}
	h.core.Resize(float64(fw), float64(fh))
}

// Run polls terminal events and renders at fps until the user quits or ctx
// is done. It does not finalize the screen.
func (h *Host) Run(ctx context.Context, fps int) error {
	if h.core == nil {
		return fmt.Errorf("term: no core bound")
	}
	if fps <= 0 {
		fps = 30
	}
	h.screen.EnableMouse()
	h.refreshStatus()

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	tick := time.NewTicker(time.Second / time.Duration(fps))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !h.HandleEvent(ev) {
				return nil
			}
		case now := <-tick.C:
			if err := h.core.Frame(now); err != nil {
				return err
			}
		}
	}
}
