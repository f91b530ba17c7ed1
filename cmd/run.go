package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/descentbench/internal/bench"
	"github.com/cwbudde/descentbench/internal/config"
	"github.com/cwbudde/descentbench/internal/store"
)

var (
	iters           int
	checkpointEvery int
	baseline        bool
	outDir          string
	writePlots      bool
	runID           string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a comparison",
	Long: `Runs every configured optimizer from the same start point, checkpoints each
trial under the data directory, prints a summary table and writes the loss and
trajectory plots.

Interrupting a run checkpoints the steps taken so far; continue it with
"descentbench resume RUN_ID".`,
	RunE: runComparison,
}

func init() {
	runCmd.Flags().IntVar(&iters, "iters", 0, "Steps per optimizer (0 = from config)")
	runCmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", 0, "Checkpoint every N steps (0 = only at the end)")
	runCmd.Flags().BoolVar(&baseline, "baseline", false, "Also run the gradient-free mayfly baseline")
	runCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for plots")
	runCmd.Flags().BoolVar(&writePlots, "plots", true, "Write loss and trajectory plots")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run ID (default: random UUID)")

	rootCmd.AddCommand(runCmd)
}

func runComparison(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("iters") {
		cfg.Iters = iters
	}
	if cmd.Flags().Changed("checkpoint-every") {
		cfg.CheckpointEvery = checkpointEvery
	}
	if cmd.Flags().Changed("baseline") {
		cfg.Baseline.Enabled = baseline
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	id := runID
	if id == "" {
		id = uuid.New().String()
	}

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %s\n\n", id, cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := pipeline.Run(ctx, id, cfg)
	return finishReport(id, rep, err)
}

// newPipeline returns a pipeline checkpointing and tracing under dataDir.
func newPipeline() (*bench.Pipeline, error) {
	fsStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	return &bench.Pipeline{Store: fsStore, TraceDir: fsStore.BaseDir()}, nil
}

// finishReport prints whatever rep holds and writes the plots. An
// interrupted run still reports its partial results.
func finishReport(id string, rep *bench.Report, runErr error) error {
	if rep != nil && len(rep.Results) > 0 {
		if err := rep.Summary(os.Stdout); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		if writePlots {
			paths, err := rep.WritePlots(outDir)
			if err != nil {
				return fmt.Errorf("failed to write plots: %w", err)
			}
			for _, p := range paths {
				fmt.Printf("Wrote %s\n", p)
			}
		}
	}

	if errors.Is(runErr, context.Canceled) {
		fmt.Printf("\nInterrupted. Continue with: descentbench resume %s\n", id)
		return nil
	}
	if runErr != nil {
		return runErr
	}
	fmt.Printf("\nRun ID: %s\n", id)
	return nil
}
