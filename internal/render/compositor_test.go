package render

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidSource is a w×h layer of one colour.
type solidSource struct {
	w, h int
	c    Color
}

func (s *solidSource) Size() (int, int) { return s.w, s.h }
func (s *solidSource) Frame(dst []Color) []Color {
	n := s.w * s.h
	if cap(dst) < n {
		dst = make([]Color, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = s.c
	}
	return dst
}

// fakeDriver captures the last frame written.
type fakeDriver struct {
	last Frame
	err  error
}

func (d *fakeDriver) Write(f Frame) error {
	d.last = Frame{W: f.W, H: f.H, Pix: append([]Color(nil), f.Pix...)}
	return d.err
}

func TestMixAlpha(t *testing.T) {
	n := 10
	a := make([]Color, n)
	b := make([]Color, n)
	dst := make([]Color, n)
	for i := 0; i < n; i++ {
		a[i] = Color{1, 0, 0, 1}
		b[i] = Color{0, 0, 1, 1}
	}
	Mix(dst, a, b, 0.5)
	assert.InDelta(t, 0.5, dst[0].R, 0.01)
	assert.InDelta(t, 0.5, dst[0].B, 0.01)
	assert.InDelta(t, 1, dst[0].A, 0.01)
}

func TestResampleNearest(t *testing.T) {
	src := []Color{{R: 1}, {G: 1}, {B: 1}, {A: 1}}
	dst := make([]Color, 16)
	Resample(dst, 4, 4, src, 2, 2)
	assert.Equal(t, Color{R: 1}, dst[0])
	assert.Equal(t, Color{R: 1}, dst[5])
	assert.Equal(t, Color{G: 1}, dst[3])
	assert.Equal(t, Color{A: 1}, dst[15])
}

func TestCompositorLighterStack(t *testing.T) {
	drv := &fakeDriver{}
	primary := &solidSource{w: 4, h: 2, c: Color{R: 0.2, G: 0.1, A: 0.3}}
	accent := &solidSource{w: 2, h: 1, c: Color{R: 0.1, B: 0.3, A: 0.3}}
	c, err := NewCompositor(4, 2, drv, primary, accent)
	require.NoError(t, err)
	c.SetPost(PostPipeline{})

	require.NoError(t, c.ComposeOnce())
	require.Len(t, drv.last.Pix, 8)
	for _, px := range drv.last.Pix {
		assert.InDelta(t, 0.3, px.R, 1e-6)
		assert.InDelta(t, 0.1, px.G, 1e-6)
		assert.InDelta(t, 0.3, px.B, 1e-6)
		assert.InDelta(t, 0.6, px.A, 1e-6)
	}
	assert.Equal(t, uint64(1), c.Frames)
}

func TestCompositorToneMapKeepsPremultiplied(t *testing.T) {
	drv := &fakeDriver{}
	c, err := NewCompositor(1, 1, drv, &solidSource{w: 1, h: 1, c: Color{R: 3, G: 3, B: 3, A: 0.5}})
	require.NoError(t, err)
	require.NoError(t, c.ComposeOnce())
	px := drv.last.Pix[0]
	assert.LessOrEqual(t, px.R, px.A)
	assert.Equal(t, float32(0.5), px.A)
}

func TestCompositorPostSwapWhileComposing(t *testing.T) {
	c, err := NewCompositor(4, 2, &fakeDriver{}, &solidSource{w: 4, h: 2, c: Color{R: 0.5, A: 0.5}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.NoError(t, c.ComposeOnce())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.UseFilmicPost(ToneMap{ExposureEV: float64(i % 3), Gamma: 2.2})
		}
	}()
	wg.Wait()
	assert.Equal(t, uint64(200), c.Frames)
}

func TestCompositorErrors(t *testing.T) {
	_, err := NewCompositor(0, 3, nil)
	assert.Error(t, err)

	boom := errors.New("closed")
	c, err := NewCompositor(1, 1, &fakeDriver{err: boom})
	require.NoError(t, err)
	assert.ErrorIs(t, c.ComposeOnce(), boom)
}

func TestToImageQuantizes(t *testing.T) {
	img := ToImage([]Color{{R: 2, G: 0.5, B: -1, A: 0.5}}, 1, 1)
	px := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(128), px.A)
	assert.Equal(t, uint8(128), px.R, "premultiplied channels never exceed alpha")
	assert.Equal(t, uint8(128), px.G)
	assert.Equal(t, uint8(0), px.B)
}

type countDriver struct {
	n   int
	err error
}

func (d *countDriver) Write(Frame) error {
	d.n++
	return d.err
}

func TestDriversFanOut(t *testing.T) {
	a, b := &countDriver{}, &countDriver{err: errors.New("boom")}
	err := Drivers{a, nil, b}.Write(Frame{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
	assert.NoError(t, Drivers{a}.Write(Frame{}))
}
