package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	"github.com/coreman2200/funtimes-hyperlattice/internal/term"
)

var termLogFile string

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Render into the terminal with half blocks",
	Args:  cobra.NoArgs,
	RunE:  runTerm,
}

func init() {
	termCmd.Flags().StringVar(&termLogFile, "log-file", "", "write logs here instead of discarding them")
}

func runTerm(cmd *cobra.Command, args []string) error {
	// The screen owns stdout; logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if termLogFile != "" {
		f, err := os.OpenFile(termLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	setupLogging(out)

	cfg := loadConfig()
	cfg.Backend = config.BackendSoft

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	host := term.New(screen)
	fw, fh := host.FrameSize()
	core, err := app.InitCore(cfg, app.HostConfig{
		Surface: app.NewSurface(float64(fw), float64(fh), 1),
		Driver:  host,
		FrameW:  fw,
		FrameH:  fh,
	})
	if err != nil {
		return err
	}
	defer core.Close()
	host.Bind(core)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	startWatch(ctx, core)

	log.Info().Int("w", fw).Int("h", fh).Msg("terminal host starting")
	return host.Run(ctx, cfg.Terminal.FPS)
}
