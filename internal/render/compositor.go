package render

import (
	"errors"
	"sync"
	"time"
)

// Frame is a composited, row-major image, row 0 at the top.
type Frame struct {
	W, H int
	Pix  []Color
}

// Driver receives composited frames (terminal, websocket, logger).
type Driver interface {
	Write(f Frame) error
}

// Drivers fans a frame out to several drivers. Every driver is written;
// the errors are joined.
type Drivers []Driver

func (d Drivers) Write(f Frame) error {
	var errs []error
	for _, drv := range d {
		if drv == nil {
			continue
		}
		if err := drv.Write(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Source is a layer whose framebuffer can be read back, such as the soft
// backend.
type Source interface {
	Size() (w, h int)
	Frame(dst []Color) []Color
}

// PostPipeline groups post stages; all are optional.
type PostPipeline struct {
	ToneMap func([]Color)
}

// Compositor stacks layer framebuffers additively at a common size, applies
// post-processing, then writes to the driver.
type Compositor struct {
	W, H int
	Drv  Driver

	layers []Source

	// Persistence blends the previous output into the next (0 = off).
	Persistence float64

	// framebuffers
	layer []Color // last layer readback
	tmp   []Color // layer resampled to W×H
	prev  []Color
	Out   []Color

	postMu sync.Mutex // post is swapped by config reloads while frames compose
	post   PostPipeline

	// metrics (last durations in ms)
	Last struct {
		ComposeMS float64
		PostMS    float64
		TotalMS   float64
	}
	Frames uint64
}

// NewCompositor allocates buffers and wires the default tone map.
func NewCompositor(w, h int, drv Driver, layers ...Source) (*Compositor, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("invalid dimensions")
	}
	c := &Compositor{Drv: drv, layers: layers}
	c.Resize(w, h)
	c.post = PostPipeline{ToneMap: ToneMap{}.Filmic}
	return c, nil
}

// Resize reallocates the output at w×h. Non-positive sizes are ignored.
func (c *Compositor) Resize(w, h int) {
	if w <= 0 || h <= 0 || (w == c.W && h == c.H) {
		return
	}
	c.W, c.H = w, h
	n := w * h
	c.tmp = make([]Color, n)
	c.prev = make([]Color, n)
	c.Out = make([]Color, n)
}

// AddLayer appends a layer on top of the stack.
func (c *Compositor) AddLayer(s Source) { c.layers = append(c.layers, s) }

func (c *Compositor) SetPost(p PostPipeline) {
	c.postMu.Lock()
	c.post = p
	c.postMu.Unlock()
}

// UseFilmicPost installs the filmic tone map with the given settings.
func (c *Compositor) UseFilmicPost(tm ToneMap) {
	c.SetPost(PostPipeline{ToneMap: tm.Filmic})
}

// ComposeOnce reads every layer, mixes them into Out and writes the result.
func (c *Compositor) ComposeOnce() error {
	start := time.Now()

	clear(c.Out)
	for _, l := range c.layers {
		if l == nil {
			continue
		}
		w, h := l.Size()
		if w == 0 || h == 0 {
			continue
		}
		c.layer = l.Frame(c.layer)
		Resample(c.tmp, c.W, c.H, c.layer, w, h)
		Lighter(c.Out, c.tmp)
	}

	if c.Persistence > 0 && c.Frames > 0 {
		Mix(c.Out, c.Out, c.prev, c.Persistence)
	}
	copy(c.prev, c.Out)
	c.Last.ComposeMS = float64(time.Since(start).Microseconds()) / 1000.0

	// Post
	postStart := time.Now()
	c.postMu.Lock()
	post := c.post
	c.postMu.Unlock()
	if post.ToneMap != nil {
		post.ToneMap(c.Out)
	} else {
		Clamp(c.Out)
	}
	c.Last.PostMS = float64(time.Since(postStart).Microseconds()) / 1000.0
	c.Frames++

	// Write
	if c.Drv != nil {
		if err := c.Drv.Write(c.Frame()); err != nil {
			return err
		}
	}
	c.Last.TotalMS = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// Frame exposes the current output; the slice is reused by the next compose.
func (c *Compositor) Frame() Frame {
	return Frame{W: c.W, H: c.H, Pix: c.Out}
}
