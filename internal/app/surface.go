package app

import "sync"

// Surface is a resizable mount box shared between the host and the
// renderers.
type Surface struct {
	mu   sync.RWMutex
	w, h float64
	dpr  float64
}

func NewSurface(w, h, dpr float64) *Surface {
	return &Surface{w: w, h: h, dpr: dpr}
}

func (s *Surface) CSSSize() (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w, s.h
}

func (s *Surface) DevicePixelRatio() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dpr <= 0 {
		return 1
	}
	return s.dpr
}

func (s *Surface) SetSize(w, h float64) {
	s.mu.Lock()
	s.w, s.h = w, h
	s.mu.Unlock()
}

func (s *Surface) SetDPR(dpr float64) {
	s.mu.Lock()
	s.dpr = dpr
	s.mu.Unlock()
}
