package app

import (
	"fmt"

	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// ScrollCard places the named card at progress: the card's stage for that
// position becomes the stage target and the fraction within the stage
// drives the scroll contribution.
func (c *Core) ScrollCard(name string, progress float64) (stage.Position, error) {
	t, ok := c.Cfg.Card(name)
	if !ok {
		return stage.Position{}, fmt.Errorf("unknown card %q", name)
	}
	pos, cfg := t.At(progress)
	c.Cond.UpdateForStage(cfg)
	c.Cond.SetScrollProgress(pos.Frac)
	c.logger.Debug().
		Str("card", name).
		Float64("progress", pos.Progress).
		Int("stage", pos.Stage).
		Str("morph", string(pos.Morph)).
		Msg("card scrolled")
	return pos, nil
}

// FocusCard applies hover focus of the given strength to the named card's
// base stage. It reports whether the strength was enough to take effect.
func (c *Core) FocusCard(name string, strength float64) (bool, error) {
	t, ok := c.Cfg.Card(name)
	if !ok {
		return false, fmt.Errorf("unknown card %q", name)
	}
	cfg, ok := stage.Focus(t.Base, strength)
	if !ok {
		return false, nil
	}
	c.Cond.UpdateForStage(cfg)
	return true, nil
}
