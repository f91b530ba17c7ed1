// Package trial drives optimizers over objectives and records what they do.
//
// A trial resets its optimizer, records the start point, and then steps a
// fixed number of times, appending each new point and its loss. Losses are
// recorded after every step; the trajectory therefore has one more entry than
// the loss sequence. Divergence is not an error: a NaN or infinite loss is
// recorded like any other.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/descentbench/internal/objective"
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/vec"
)

// StopReason describes why a trial ended.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopConverged StopReason = "converged"
	StopCancelled StopReason = "cancelled"
)

// Trial is one optimizer run over one objective.
type Trial struct {
	// Name labels the trial in results, traces and plots.
	Name      string
	Optimizer opt.Optimizer
	Objective objective.Objective
	Start     vec.Vector
	// Iters is the number of steps to take.
	Iters int
	// Recorder, if set, receives every step of this trial.
	Recorder Recorder
	// Resume, if set, continues from a checkpoint instead of resetting the
	// optimizer. Start must then be the checkpointed parameters.
	Resume *ResumePoint
}

// ResumePoint is the part of a checkpoint a trial needs to continue.
type ResumePoint struct {
	Iteration   int
	InitialLoss float64
	BestLoss    float64
	State       opt.State
}

// Step is one recorded update.
type Step struct {
	Trial string
	// Iteration counts steps from the original start, across resumes.
	Iteration int
	Params    vec.Vector
	Loss      float64
}

// Recorder receives the steps of a trial. An error aborts the trial.
type Recorder interface {
	Record(step Step) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(step Step) error

func (f RecorderFunc) Record(step Step) error { return f(step) }

// Progress is reported after every step.
type Progress struct {
	Trial     string
	Iteration int
	Total     int
	Loss      float64
	BestLoss  float64
	Elapsed   time.Duration
}

// Checkpoint carries everything needed to resume a trial later.
type Checkpoint struct {
	Trial       string
	Iteration   int
	Params      vec.Vector
	Loss        float64
	InitialLoss float64
	BestLoss    float64
	State       opt.State
}

// Result is the record of a finished (or interrupted) trial.
type Result struct {
	Name string
	Kind opt.Kind
	// Trajectory holds the start point followed by the point after each step.
	Trajectory []vec.Vector
	// Losses holds the loss after each step.
	Losses []float64
	// StartIteration is the iteration the trial resumed from, 0 for a fresh trial.
	StartIteration int
	Iterations     int
	InitialLoss    float64
	FinalLoss      float64
	BestLoss       float64
	BestIteration  int
	Elapsed        time.Duration
	Stopped        StopReason
	// State is the optimizer state after the last step.
	State opt.State
}

// Final returns the last point of the trajectory.
func (r *Result) Final() vec.Vector {
	return r.Trajectory[len(r.Trajectory)-1]
}

// Checkpoint returns a checkpoint for continuing r.
func (r *Result) Checkpoint() Checkpoint {
	return Checkpoint{
		Trial:       r.Name,
		Iteration:   r.StartIteration + r.Iterations,
		Params:      r.Final().Clone(),
		Loss:        r.FinalLoss,
		InitialLoss: r.InitialLoss,
		BestLoss:    r.BestLoss,
		State:       r.State,
	}
}

func (t Trial) validate() error {
	if t.Optimizer == nil {
		return fmt.Errorf("trial %q has no optimizer", t.Name)
	}
	if t.Objective == nil {
		return fmt.Errorf("trial %q has no objective", t.Name)
	}
	if t.Iters < 0 {
		return fmt.Errorf("trial %q: iterations cannot be negative, got %d", t.Name, t.Iters)
	}
	if t.Optimizer.Dim() != t.Objective.Dim() {
		return fmt.Errorf("trial %q: optimizer dimension %d does not match objective %s dimension %d",
			t.Name, t.Optimizer.Dim(), t.Objective.Name(), t.Objective.Dim())
	}
	if t.Start.Len() != t.Objective.Dim() {
		return fmt.Errorf("trial %q: start point has %d coordinates, objective %s needs %d",
			t.Name, t.Start.Len(), t.Objective.Name(), t.Objective.Dim())
	}
	if t.Resume != nil && t.Resume.Iteration < 0 {
		return fmt.Errorf("trial %q: resume iteration cannot be negative, got %d", t.Name, t.Resume.Iteration)
	}
	return nil
}

// Run executes t. The optimizer is reset first, or restored from t.Resume.
//
// Cancellation is checked between steps. A cancelled trial returns its
// partial result together with the context error.
func Run(ctx context.Context, t Trial, opts ...Option) (*Result, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if t.Name == "" {
		t.Name = string(t.Optimizer.Kind())
	}

	offset := 0
	initialLoss := t.Objective.Loss(t.Start)
	bestLoss := initialLoss
	if t.Resume != nil {
		if err := t.Optimizer.Restore(t.Resume.State); err != nil {
			return nil, fmt.Errorf("failed to restore optimizer state for %s: %w", t.Name, err)
		}
		offset = t.Resume.Iteration
		initialLoss = t.Resume.InitialLoss
		bestLoss = math.Min(t.Resume.BestLoss, t.Objective.Loss(t.Start))
	} else {
		t.Optimizer.Reset()
	}

	slog.Debug("Starting trial", "trial", t.Name, "optimizer", t.Optimizer.Kind(), "iters", t.Iters, "offset", offset)

	params := t.Start.Clone()
	result := &Result{
		Name:           t.Name,
		Kind:           t.Optimizer.Kind(),
		Trajectory:     append(make([]vec.Vector, 0, t.Iters+1), params),
		Losses:         make([]float64, 0, t.Iters),
		StartIteration: offset,
		InitialLoss:    initialLoss,
		FinalLoss:      t.Objective.Loss(params),
		BestLoss:       bestLoss,
		BestIteration:  offset,
		Stopped:        StopCompleted,
	}

	grad := objective.GradientFunc(t.Objective)
	tracker := NewConvergenceTracker(o.convergence)
	started := time.Now()
	finish := func() {
		result.Elapsed = time.Since(started)
		result.State = t.Optimizer.Snapshot()
	}

	for i := 1; i <= t.Iters; i++ {
		if err := ctx.Err(); err != nil {
			result.Stopped = StopCancelled
			finish()
			slog.Info("Trial cancelled", "trial", t.Name, "iteration", offset+result.Iterations)
			return result, err
		}

		next, err := opt.Advance(t.Optimizer, params, grad)
		if err != nil {
			return nil, fmt.Errorf("failed to step %s at iteration %d: %w", t.Name, offset+i, err)
		}
		params = next
		loss := t.Objective.Loss(params)
		iteration := offset + i

		result.Trajectory = append(result.Trajectory, params)
		result.Losses = append(result.Losses, loss)
		result.Iterations = i
		result.FinalLoss = loss
		if loss < result.BestLoss {
			result.BestLoss = loss
			result.BestIteration = iteration
		}

		if t.Recorder != nil {
			if err := t.Recorder.Record(Step{Trial: t.Name, Iteration: iteration, Params: params, Loss: loss}); err != nil {
				return nil, fmt.Errorf("failed to record %s at iteration %d: %w", t.Name, iteration, err)
			}
		}
		if o.progress != nil {
			o.progress(Progress{
				Trial:     t.Name,
				Iteration: iteration,
				Total:     offset + t.Iters,
				Loss:      loss,
				BestLoss:  result.BestLoss,
				Elapsed:   time.Since(started),
			})
		}
		if o.checkpoint != nil && o.checkpointEvery > 0 && i%o.checkpointEvery == 0 && i < t.Iters {
			finish()
			if err := o.checkpoint(result.Checkpoint()); err != nil {
				return nil, fmt.Errorf("failed to checkpoint %s at iteration %d: %w", t.Name, iteration, err)
			}
		}
		if tracker.Update(loss) {
			result.Stopped = StopConverged
			break
		}
	}

	finish()
	slog.Debug("Trial finished",
		"trial", t.Name,
		"stopped", result.Stopped,
		"iterations", result.Iterations,
		"final_loss", result.FinalLoss,
		"best_loss", result.BestLoss,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
