package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
)

var (
	configPath string
	logLevel   string
	backend    string
	stageName  string
	program    string
	watch      bool
	fps        int
)

var rootCmd = &cobra.Command{
	Use:   "hyperlattice",
	Short: "Procedural 4D lattice visualizer",
	Long: `hyperlattice renders two layers of a rotating 4D lattice and eases
their parameters toward stage, scroll and pointer driven targets.

Run without a subcommand to open the desktop window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Stderr)
		return nil
	},
	RunE: runWindow,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hyperlattice.yaml", "path to config yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "renderer backend: kage | soft (overrides config)")
	rootCmd.PersistentFlags().StringVar(&stageName, "stage", "", "stage preset applied at startup")
	rootCmd.PersistentFlags().StringVar(&program, "program", "", "show program yaml played at startup")
	rootCmd.PersistentFlags().BoolVar(&watch, "watch", false, "reload policy and lerp factors when the config file changes")
	rootCmd.PersistentFlags().IntVar(&fps, "fps", 0, "frames per second (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(termCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(seqsimCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
}

// loadConfig reads the config file when present and applies the flags
// given on the command line over it.
func loadConfig() *config.Config {
	cfg := config.Default()
	if c, err := config.Load(configPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", configPath).Msg("no config file; using defaults")
		} else {
			log.Warn().Err(err).Str("path", configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		cfg = c
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if stageName != "" {
		cfg.Stage = stageName
	}
	if program != "" {
		cfg.Program = program
	}
	if fps > 0 {
		cfg.FPS = fps
	}
	zerolog.SetGlobalLevel(cfg.Level())
	return cfg
}

// startWatch hot-reloads the config file into core until ctx is done.
func startWatch(ctx context.Context, core *app.Core) {
	if !watch {
		return
	}
	go func() {
		err := config.Watch(ctx, configPath, core.ApplyConfig)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("path", configPath).Msg("config watch stopped")
		}
	}()
}
