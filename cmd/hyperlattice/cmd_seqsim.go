package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-hyperlattice/internal/sequence"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

var (
	seqFPS    int
	seqMax    float64
	seqParams bool
)

var seqsimCmd = &cobra.Command{
	Use:   "seqsim <program.yaml>",
	Short: "Play a show program against printing hooks, without rendering",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeqsim,
}

func init() {
	seqsimCmd.Flags().IntVar(&seqFPS, "fps", 60, "simulation frames per second")
	seqsimCmd.Flags().Float64Var(&seqMax, "max", 600, "stop after this many simulated seconds")
	seqsimCmd.Flags().BoolVar(&seqParams, "params", false, "also print parameter and bool automation")
}

func runSeqsim(cmd *cobra.Command, args []string) error {
	prog, err := sequence.LoadFile(args[0])
	if err != nil {
		return err
	}
	if seqFPS <= 0 {
		return fmt.Errorf("seqsim: fps must be positive")
	}
	out := cmd.OutOrStdout()
	player := sequence.NewPlayer(printHooks(out, seqParams))
	if err := player.Load(prog); err != nil {
		return fmt.Errorf("seqsim: %w", err)
	}
	player.Start()

	dt := 1.0 / float64(seqFPS)
	t := 0.0
	for player.State != sequence.Idle && t < seqMax {
		player.Tick(dt)
		t += dt
	}
	if player.State != sequence.Idle {
		fmt.Fprintf(out, "Stopped at t=%.3f (still %s)\n", t, player.State)
		return nil
	}
	fmt.Fprintf(out, "Done at t=%.3f\n", t)
	return nil
}

func printHooks(out io.Writer, verbose bool) sequence.Hooks {
	lastAlpha := -1.0
	h := sequence.Hooks{
		SetStage: func(name string, cfg stage.Config) {
			fmt.Fprintf(out, "[SetStage] %s %s\n", name, describeStage(cfg))
		},
		ArmNext: func(name string, cfg stage.Config) {
			fmt.Fprintf(out, "[ArmNext] %s %s\n", name, describeStage(cfg))
		},
		SetCrossfade: func(alpha float64) {
			// The player reports every tick; only print visible steps.
			if fmt.Sprintf("%.2f", alpha) == fmt.Sprintf("%.2f", lastAlpha) {
				return
			}
			lastAlpha = alpha
			fmt.Fprintf(out, "[Crossfade] alpha=%.2f\n", alpha)
		},
		SetParam: func(string, float64) {},
		SetBool:  func(string, bool) {},
	}
	if verbose {
		h.SetParam = func(name string, v float64) {
			fmt.Fprintf(out, "[SetParam] %s=%.3f\n", name, v)
		}
		h.SetBool = func(name string, b bool) {
			fmt.Fprintf(out, "[SetBool] %s=%t\n", name, b)
		}
	}
	return h
}

func describeStage(cfg stage.Config) string {
	m := cfg.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
