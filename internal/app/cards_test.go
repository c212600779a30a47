package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-hyperlattice/internal/choreo"
	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

func cardConfig() *stage.Track {
	return &stage.Track{
		Name: "deck",
		Base: stage.FromPartial(params.Partial{params.GridDensity: 30}),
		Stages: []stage.Config{
			stage.FromPartial(params.Partial{params.Hue: 0.2}),
			stage.FromPartial(params.Partial{params.Hue: 0.7}),
		},
	}
}

func TestScrollCard(t *testing.T) {
	cfg := softConfig()
	cfg.Cards = []stage.Track{*cardConfig()}
	c := newTestCore(t, cfg, nil)

	pos, err := c.ScrollCard("deck", 0.75)
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Stage)
	assert.Equal(t, stage.MorphBackground, pos.Morph)
	assert.InDelta(t, 0.5, c.Cond.ScrollProgress(), 1e-9)

	st := c.Cond.Stage(choreo.Primary)
	assert.InDelta(t, 0.7, st[params.Hue], 1e-9)
	assert.InDelta(t, 34, st[params.GridDensity], 1e-9)
	assert.InDelta(t, 0.4+0.75*0.15, st[params.Intensity], 1e-9)

	_, err = c.ScrollCard("missing", 0.5)
	assert.Error(t, err)
}

func TestFocusCard(t *testing.T) {
	cfg := softConfig()
	cfg.Cards = []stage.Track{*cardConfig()}
	c := newTestCore(t, cfg, nil)

	ok, err := c.FocusCard("deck", 0.2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.FocusCard("deck", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 55, c.Cond.Stage(choreo.Primary)[params.GridDensity], 1e-9)

	_, err = c.FocusCard("missing", 1)
	assert.Error(t, err)
}

func TestRunPumpsFrames(t *testing.T) {
	c := newTestCore(t, softConfig(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx, 100))
	assert.Greater(t, c.Cond.Frames(), uint64(0))
}
