package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/descentbench/internal/bench"
	"github.com/cwbudde/descentbench/internal/trial"
)

var (
	resumeIters           int
	resumeCheckpointEvery int
	resumeConverge        bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume RUN_ID",
	Short: "Resume a run from its checkpoints",
	Long: `Continues every checkpointed trial of a run from its saved parameters and
optimizer state. A resumed trial follows the same trajectory it would have
taken without the interruption.

--iters raises the total step count of every trial, so a finished run can be
extended.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "New total steps per optimizer (0 = as started)")
	resumeCmd.Flags().IntVar(&resumeCheckpointEvery, "checkpoint-every", 0, "Checkpoint every N steps (0 = only at the end)")
	resumeCmd.Flags().BoolVar(&resumeConverge, "stop-on-convergence", false, "Stop trials whose loss stalls")
	resumeCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for plots")
	resumeCmd.Flags().BoolVar(&writePlots, "plots", true, "Write loss and trajectory plots")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	id := args[0]

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	opts := bench.ResumeOptions{
		Iters:           resumeIters,
		CheckpointEvery: resumeCheckpointEvery,
	}
	if resumeConverge {
		opts.Convergence = trial.DefaultConvergenceConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := pipeline.Resume(ctx, id, opts)
	return finishReport(id, rep, err)
}
