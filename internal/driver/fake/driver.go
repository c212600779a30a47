package fake

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
)

// Summary is the compact description of one frame.
type Summary struct {
	W, H             int
	AvgR, AvgG, AvgB float64
	AvgA             float64
	Peak             float64
}

// Driver logs a compact summary of every Nth frame (averages and peak
// alpha), useful for headless runs and tests.
type Driver struct {
	Count  int
	Every  int
	Last   Summary
	Logger *zerolog.Logger
}

func Summarize(f render.Frame) Summary {
	s := Summary{W: f.W, H: f.H}
	for _, c := range f.Pix {
		s.AvgR += float64(c.R)
		s.AvgG += float64(c.G)
		s.AvgB += float64(c.B)
		s.AvgA += float64(c.A)
		if float64(c.A) > s.Peak {
			s.Peak = float64(c.A)
		}
	}
	n := float64(len(f.Pix))
	if n == 0 {
		return s
	}
	s.AvgR /= n
	s.AvgG /= n
	s.AvgB /= n
	s.AvgA /= n
	return s
}

func (d *Driver) Write(f render.Frame) error {
	d.Count++
	d.Last = Summarize(f)
	every := d.Every
	if every <= 0 {
		every = 1
	}
	if d.Count%every != 0 {
		return nil
	}
	logger := log.Logger
	if d.Logger != nil {
		logger = *d.Logger
	}
	logger.Info().
		Int("frame", d.Count).
		Int("w", f.W).Int("h", f.H).
		Str("avg", fmtRGB(d.Last.AvgR, d.Last.AvgG, d.Last.AvgB)).
		Float64("alpha", d.Last.AvgA).
		Float64("peak", d.Last.Peak).
		Msg("frame")
	return nil
}

func fmtRGB(r, g, b float64) string {
	return fmt.Sprintf("(%.2f,%.2f,%.2f)", r, g, b)
}
