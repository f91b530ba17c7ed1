package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/descentbench/internal/bench"
	"github.com/cwbudde/descentbench/internal/store"
	"github.com/cwbudde/descentbench/internal/trial"
)

// runJob executes a comparison job in the background.
// The pipeline decides where checkpoints and traces go; its Progress hook is
// replaced by one that feeds the job's trial statuses.
func runJob(ctx context.Context, jm *JobManager, pipeline bench.Pipeline, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.State.Finished() {
		return fmt.Errorf("job %s already %s", jobID, job.State)
	}

	// Check for cancellation before starting
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID, nil)
		return ctx.Err()
	default:
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "run", job.Config.String())

	pipeline.Progress = func(p trial.Progress) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.observe(p)
		})
	}

	// Start progress monitoring goroutine
	start := time.Now()
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	report, err := pipeline.Run(ctx, jobID, job.Config)
	close(progressDone)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID, report)
			return err
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	// Update job with results
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.report = report
		j.EndTime = &endTime
		applyResults(j, report.Results)
	})
	if err != nil {
		return err
	}

	final, _ := jm.GetJob(jobID)
	steps := final.Steps()
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"trials", len(report.Results),
		"steps", steps,
		"steps_per_second", float64(steps)/elapsed.Seconds(),
	)

	// Broadcast final completion event
	jm.broadcaster.Broadcast(newProgressEvent(final))

	return nil
}

// applyResults overwrites the trial statuses with the final results.
func applyResults(j *Job, results []*trial.Result) {
	for _, res := range results {
		for i := range j.Trials {
			if j.Trials[i].Name != res.Name {
				continue
			}
			j.Trials[i].Iteration = res.StartIteration + res.Iterations
			j.Trials[i].Loss = store.Number(res.FinalLoss)
			j.Trials[i].BestLoss = store.Number(res.BestLoss)
			j.Trials[i].Stopped = string(res.Stopped)
		}
	}
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(newProgressEvent(job))
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(newProgressEvent(job))
	}
}

// markJobCancelled marks a job as cancelled, keeping any partial results
func markJobCancelled(jm *JobManager, jobID string, report *bench.Report) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		if report != nil {
			j.report = report
			applyResults(j, report.Results)
		}
	})
	slog.Info("Job cancelled", "job_id", jobID)

	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(newProgressEvent(job))
	}
}
