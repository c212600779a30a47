package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	"github.com/coreman2200/funtimes-hyperlattice/internal/desktop"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the desktop window (GPU layers)",
	Args:  cobra.NoArgs,
	RunE:  runWindow,
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	cfg.Backend = config.BackendKage
	core, err := app.InitCore(cfg, app.HostConfig{})
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	startWatch(ctx, core)

	return desktop.Run(core, cfg.Window.Title, cfg.Window.Width, cfg.Window.Height, cfg.FPS)
}
