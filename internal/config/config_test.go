package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefaultsMatchLayerOptions(t *testing.T) {
	c := Default()
	assert.Equal(t, 0.04, c.Primary.Lerp)
	assert.Equal(t, 0.06, c.Accent.Lerp)
	assert.Equal(t, 2.0, c.Primary.DPRLimit)
	assert.Equal(t, 1.5, c.Accent.DPRLimit)
	assert.Equal(t, choreo.DefaultPolicy(), c.Policy)
	assert.Equal(t, zerolog.InfoLevel, c.Level())
}

func TestParsePartialOverride(t *testing.T) {
	c, err := Parse([]byte(`
log_level: debug
backend: SOFT
fps: 0
primary:
  lerp: 0.1
  initial:
    hue: 0.2
policy:
  accent:
    tilt:
      yw: 2
`))
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, c.Level())
	assert.Equal(t, BackendSoft, c.Backend)
	assert.Equal(t, 60, c.FPS, "zero falls back")
	assert.Equal(t, 0.1, c.Primary.Lerp)
	assert.Equal(t, 0.06, c.Accent.Lerp)

	def := choreo.DefaultPolicy()
	assert.Equal(t, 2.0, c.Policy.Accent.Tilt.YW)
	assert.Equal(t, def.Accent.Tilt.XW, c.Policy.Accent.Tilt.XW, "siblings untouched")
	assert.Equal(t, def.Primary, c.Policy.Primary)

	opts := c.LayerOptions(choreo.Primary)
	assert.Equal(t, 0.1, opts.LerpFactor)
	assert.Equal(t, 0.2, opts.Initial[params.Hue])
	assert.Equal(t, 36.0, opts.Initial[params.GridDensity])
	assert.Equal(t, 0.56, choreo.LayerOptions(choreo.Primary).Initial[params.Hue], "built-ins not mutated")
}

func TestParseRejects(t *testing.T) {
	for name, src := range map[string]string{
		"backend":   "backend: vulkan",
		"level":     "log_level: loud",
		"initial":   "accent:\n  initial:\n    sparkle: 1",
		"malformed": "fps: [",
		"card name": "cards: [{base: {hue: 0.1}}]",
		"card dup":  "cards: [{name: a}, {name: a}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestParseCards(t *testing.T) {
	c, err := Parse([]byte(`
cards:
  - name: about
    base: {gridDensity: 30, accentHue: 0.8}
    stages:
      - {hue: 0.2}
      - {hue: 0.7, sparkle: 1}
`))
	require.NoError(t, err)
	card, ok := c.Card("about")
	require.True(t, ok)
	assert.Equal(t, 30.0, card.Base.GetOr(params.GridDensity, 0))
	require.NotNil(t, card.Base.AccentHue)
	assert.Equal(t, 0.8, *card.Base.AccentHue)
	require.Len(t, card.Stages, 2)
	assert.Equal(t, 0.7, card.Stages[1].GetOr(params.Hue, 0))
	assert.Equal(t, []string{"sparkle"}, card.Stages[1].Skipped())

	_, ok = c.Card("missing")
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	c := Default()
	c.Stage = "expanding"
	c.Serve.Addr = "127.0.0.1:9000"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fps: 30\n"), 0644))

	var mu sync.Mutex
	var got []*Config
	w, err := NewWatcher(path, func(c *Config) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("fps: 1\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("fps: 45\nprimary:\n  lerp: 0.2\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	last := got[len(got)-1]
	mu.Unlock()
	assert.Equal(t, 45, last.FPS)
	assert.Equal(t, 0.2, last.Primary.Lerp)

	// A broken save keeps the previous config.
	n := w.Reloads()
	require.NoError(t, os.WriteFile(path, []byte("backend: vulkan\n"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, n, w.Reloads())
}

func TestWatchStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fps: 30\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}
