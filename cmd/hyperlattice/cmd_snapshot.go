package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	"github.com/coreman2200/funtimes-hyperlattice/internal/driver/preview"
)

var (
	snapOut    string
	snapWidth  int
	snapHeight int
	snapFrames int
	snapScroll float64
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render a number of frames on the CPU and write the last one as PNG",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapOut, "out", "o", "hyperlattice.png", "output PNG path")
	snapshotCmd.Flags().IntVar(&snapWidth, "width", 480, "image width")
	snapshotCmd.Flags().IntVar(&snapHeight, "height", 270, "image height")
	snapshotCmd.Flags().IntVar(&snapFrames, "frames", 120, "frames to simulate before capturing")
	snapshotCmd.Flags().Float64Var(&snapScroll, "scroll", 0, "scroll progress 0..1")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if snapWidth <= 0 || snapHeight <= 0 {
		return fmt.Errorf("snapshot: invalid size %dx%d", snapWidth, snapHeight)
	}
	cfg := loadConfig()
	cfg.Backend = config.BackendSoft
	core, err := app.InitCore(cfg, app.HostConfig{
		Surface: app.NewSurface(float64(snapWidth), float64(snapHeight), 1),
		FrameW:  snapWidth,
		FrameH:  snapHeight,
	})
	if err != nil {
		return err
	}
	defer core.Close()
	core.Cond.SetScrollProgress(snapScroll)

	// Simulated clock at the configured rate, so output does not depend on
	// how fast the machine renders.
	step := time.Second / time.Duration(cfg.FPS)
	now := time.Now()
	for i := 0; i < max(1, snapFrames); i++ {
		if err := core.Frame(now); err != nil {
			return err
		}
		now = now.Add(step)
	}
	if err := preview.WritePNG(snapOut, core.Snapshot()); err != nil {
		return err
	}
	log.Info().Str("path", snapOut).Int("w", snapWidth).Int("h", snapHeight).Msg("snapshot written")
	fmt.Fprintln(cmd.OutOrStdout(), snapOut)
	return nil
}
