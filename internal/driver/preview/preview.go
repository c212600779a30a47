package preview

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
)

// Driver keeps a PNG of the latest composited frame on disk, rewritten at
// most once per throttle interval.
type Driver struct {
	path     string
	throttle time.Duration
	lastEmit time.Time
	now      func() time.Time
	writes   int
	mu       sync.Mutex
}

func New(path string, throttle time.Duration) *Driver {
	if throttle <= 0 {
		throttle = 500 * time.Millisecond
	}
	return &Driver{path: path, throttle: throttle, now: time.Now}
}

func (d *Driver) Write(f render.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.lastEmit.IsZero() && d.lastEmit.Add(d.throttle).After(now) {
		return nil
	}
	d.lastEmit = now
	if err := WritePNG(d.path, render.ToImage(f.Pix, f.W, f.H)); err != nil {
		return err
	}
	d.writes++
	return nil
}

// Writes counts the files written so far.
func (d *Driver) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// WritePNG encodes img next to path and renames it into place, so readers
// never see a partial file.
func WritePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*.png")
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("preview: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("preview: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
