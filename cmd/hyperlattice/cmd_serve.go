package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/app"
	"github.com/coreman2200/funtimes-hyperlattice/internal/config"
	"github.com/coreman2200/funtimes-hyperlattice/internal/driver/fake"
	"github.com/coreman2200/funtimes-hyperlattice/internal/driver/preview"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/ws"
)

var (
	serveAddr      string
	servePreview   string
	serveLogFrames int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Render headless and bridge control and frames over websockets",
	Long: `serve renders both layers on the CPU and exposes
  /ws/control  JSON control messages (stage, preset, scroll, tilt, engage, pointer, player)
  /ws/frames   composited preview frames
  /ws/diag     diagnostics
  /healthz     health summary`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&servePreview, "preview", "", "keep a PNG of the latest frame at this path")
	serveCmd.Flags().IntVar(&serveLogFrames, "log-frames", 0, "log a frame summary every N frames")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.Backend != config.BackendSoft {
		log.Info().Str("backend", cfg.Backend).Msg("serve renders on the CPU; using soft backend")
		cfg.Backend = config.BackendSoft
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}

	state := ws.NewState(nil)
	state.ConfigPath = configPath
	drivers := render.Drivers{state}
	if servePreview != "" {
		drivers = append(drivers, preview.New(servePreview, time.Second))
	}
	if serveLogFrames > 0 {
		drivers = append(drivers, &fake.Driver{Every: serveLogFrames})
	}

	core, err := app.InitCore(cfg, app.HostConfig{
		Surface: app.NewSurface(float64(cfg.Serve.FrameW), float64(cfg.Serve.FrameH), 1),
		Driver:  drivers,
		FrameW:  cfg.Serve.FrameW,
		FrameH:  cfg.Serve.FrameH,
	})
	if err != nil {
		return err
	}
	defer core.Close()
	state.Core = core

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	startWatch(ctx, core)

	srv := &http.Server{
		Addr:         cfg.Serve.Addr,
		Handler:      withCORS(state.Mux()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run render loop & server ----
	go func() {
		_ = core.Run(ctx, cfg.Serve.FPS)
	}()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Serve.Addr).Int("w", cfg.Serve.FrameW).Int("h", cfg.Serve.FrameH).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	state.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
