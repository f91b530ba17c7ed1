// Package bench runs optimizer comparisons end to end: it builds trials from
// a run configuration, traces and checkpoints them, and collects the results
// for reporting.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/descentbench/internal/config"
	"github.com/cwbudde/descentbench/internal/metrics"
	"github.com/cwbudde/descentbench/internal/objective"
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/store"
	"github.com/cwbudde/descentbench/internal/trial"
	"github.com/cwbudde/descentbench/internal/vec"
)

// BaselineRadius is the half-width of the search box around the start point
// for objectives without natural bounds.
const BaselineRadius = 6.0

// Pipeline runs and resumes comparisons. All fields are optional.
type Pipeline struct {
	// Store receives periodic and final checkpoints of every trial.
	Store store.Store
	// TraceDir is the base directory for per-step traces; empty disables tracing.
	TraceDir string
	Metrics  *metrics.Metrics
	// Progress is called after every step of every trial, from several
	// goroutines at once.
	Progress func(trial.Progress)
}

// BaselineResult is the outcome of the gradient-free reference search.
type BaselineResult struct {
	Params  vec.Vector
	Loss    float64
	Elapsed time.Duration
}

// Report holds everything a finished (or interrupted) run produced.
type Report struct {
	RunID     string
	Objective objective.Objective
	// Results holds one entry per trial that returned a result, in trial order.
	Results  []*trial.Result
	Baseline *BaselineResult
}

// Minimum returns the known minimum of the objective, or the point found by
// the baseline search, or nil.
func (r *Report) Minimum() vec.Vector {
	if m, ok := r.Objective.(objective.Minimizer); ok {
		return m.Minimum()
	}
	if r.Baseline != nil {
		return r.Baseline.Params
	}
	return nil
}

// Run executes a fresh comparison under runID.
//
// If the context is cancelled, the partial results are checkpointed so the
// run can be resumed, and returned together with the context error.
func (p *Pipeline) Run(ctx context.Context, runID string, cfg config.Run) (*Report, error) {
	obj, trials, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	slog.Info("Starting comparison",
		"run_id", runID,
		"objective", obj.Name(),
		"trials", len(trials),
		"iters", cfg.Iters,
	)

	configs := make(map[string]store.TrialConfig, len(trials))
	for i := range trials {
		configs[trials[i].Name] = cfg.TrialConfig(i)
	}

	closeTraces, err := p.attachTraces(runID, trials, false)
	if err != nil {
		return nil, err
	}
	opts := p.options(runID, cfg.CheckpointEvery, configs, cfg.Options())
	results, runErr := trial.Compare(ctx, trials, opts...)
	closeTraces()

	report := p.finish(runID, obj, trials, configs, results)
	if runErr != nil {
		return report, runErr
	}

	if cfg.Baseline.Enabled {
		report.Baseline = runBaseline(obj, vec.Vector(cfg.Start), cfg.Baseline)
		slog.Info("Baseline search complete", "run_id", runID, "loss", report.Baseline.Loss, "params", report.Baseline.Params)
	}

	slog.Info("Comparison complete", "run_id", runID, "trials", len(report.Results))
	return report, nil
}

// ResumeOptions control how a run is continued.
type ResumeOptions struct {
	// Iters sets a new total iteration count; 0 keeps the count each trial
	// was started with.
	Iters int
	// CheckpointEvery persists every trial each n steps; 0 only saves the end.
	CheckpointEvery int
	// Convergence, if enabled, stops resumed trials early once they stall.
	Convergence trial.ConvergenceConfig
}

// Resume continues every checkpointed trial of runID. Trials that already
// reached their iteration count return a result with no new steps.
func (p *Pipeline) Resume(ctx context.Context, runID string, ro ResumeOptions) (*Report, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("resume needs a checkpoint store")
	}
	if ro.Iters < 0 || ro.CheckpointEvery < 0 {
		return nil, fmt.Errorf("iterations and checkpoint interval cannot be negative")
	}

	checkpoints, err := p.Store.LoadRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	objSpec := checkpoints[0].Config.Objective
	obj, err := objective.New(objSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild objective: %w", err)
	}

	trials := make([]trial.Trial, 0, len(checkpoints))
	configs := make(map[string]store.TrialConfig, len(checkpoints))
	for _, cp := range checkpoints {
		tc := cp.Config
		tc.Objective = objSpec
		if ro.Iters > 0 {
			tc.Iters = ro.Iters
		}
		if err := cp.IsCompatible(tc); err != nil {
			return nil, fmt.Errorf("checkpoint %s/%s cannot be resumed: %w", runID, cp.Trial, err)
		}
		o, err := tc.Optimizer.Build(obj.Dim())
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild optimizer for %s: %w", cp.Trial, err)
		}

		remaining := tc.Iters - cp.Iteration
		if remaining < 0 {
			remaining = 0
		}
		trials = append(trials, trial.Trial{
			Name:      cp.Trial,
			Optimizer: o,
			Objective: obj,
			Start:     vec.Vector(cp.Params).Clone(),
			Iters:     remaining,
			Resume:    cp.ResumePoint(),
		})
		configs[cp.Trial] = tc

		if p.TraceDir != "" {
			if err := store.TruncateTrace(p.TraceDir, runID, cp.Trial, cp.Iteration); err != nil {
				return nil, fmt.Errorf("failed to truncate trace for %s: %w", cp.Trial, err)
			}
		}
		slog.Info("Resuming trial", "run_id", runID, "trial", cp.Trial, "iteration", cp.Iteration, "remaining", remaining)
	}

	closeTraces, err := p.attachTraces(runID, trials, true)
	if err != nil {
		return nil, err
	}
	var base []trial.Option
	if ro.Convergence.Enabled {
		base = append(base, trial.WithConvergence(ro.Convergence))
	}
	results, runErr := trial.Compare(ctx, trials, p.options(runID, ro.CheckpointEvery, configs, base)...)
	closeTraces()

	report := p.finish(runID, obj, trials, configs, results)
	if runErr != nil {
		return report, runErr
	}
	slog.Info("Resume complete", "run_id", runID, "trials", len(report.Results))
	return report, nil
}

// attachTraces gives every trial a trace writer. The returned function
// closes them all.
func (p *Pipeline) attachTraces(runID string, trials []trial.Trial, appendMode bool) (func(), error) {
	var writers []*store.TraceWriter
	closeAll := func() {
		for _, w := range writers {
			if err := w.Close(); err != nil {
				slog.Warn("Failed to close trace", "path", w.Path(), "error", err)
			}
		}
	}
	if p.TraceDir == "" {
		return closeAll, nil
	}
	for i := range trials {
		w, err := store.NewTraceWriter(p.TraceDir, runID, trials[i].Name, appendMode)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open trace for %s: %w", trials[i].Name, err)
		}
		writers = append(writers, w)
		trials[i].Recorder = w
	}
	return closeAll, nil
}

func (p *Pipeline) options(runID string, every int, configs map[string]store.TrialConfig, base []trial.Option) []trial.Option {
	opts := append([]trial.Option(nil), base...)
	if p.Progress != nil || p.Metrics != nil {
		opts = append(opts, trial.WithProgress(func(pr trial.Progress) {
			if p.Metrics != nil {
				p.Metrics.ObserveProgress(pr)
			}
			if p.Progress != nil {
				p.Progress(pr)
			}
		}))
	}
	if p.Store != nil && every > 0 {
		opts = append(opts, trial.WithCheckpoints(every, func(cp trial.Checkpoint) error {
			p.saveCheckpoint(runID, cp, configs[cp.Trial])
			return nil
		}))
	}
	return opts
}

// saveCheckpoint persists cp. Failures are logged and counted but never stop
// a trial: a diverged trial has nothing worth resuming.
func (p *Pipeline) saveCheckpoint(runID string, cp trial.Checkpoint, tc store.TrialConfig) {
	if p.Store == nil || tc.Iters == 0 {
		return
	}
	err := p.Store.SaveCheckpoint(runID, store.NewCheckpoint(runID, cp, tc))
	if p.Metrics != nil {
		p.Metrics.RecordCheckpoint(err)
	}
	if err != nil {
		slog.Warn("Skipping checkpoint", "run_id", runID, "trial", cp.Trial, "iteration", cp.Iteration, "error", err)
		return
	}
	slog.Debug("Checkpoint saved", "run_id", runID, "trial", cp.Trial, "iteration", cp.Iteration, "loss", cp.Loss)
}

// finish checkpoints and observes every result, including partial ones.
func (p *Pipeline) finish(runID string, obj objective.Objective, trials []trial.Trial, configs map[string]store.TrialConfig, results []*trial.Result) *Report {
	report := &Report{RunID: runID, Objective: obj}
	for i, t := range trials {
		var res *trial.Result
		if i < len(results) {
			res = results[i]
		}
		if res == nil {
			if p.Metrics != nil {
				p.Metrics.RecordTrialFailure(string(t.Optimizer.Kind()))
			}
			continue
		}
		p.saveCheckpoint(runID, res.Checkpoint(), configs[res.Name])
		if p.Metrics != nil {
			p.Metrics.ObserveResult(res)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func runBaseline(obj objective.Objective, start vec.Vector, b config.Baseline) *BaselineResult {
	lower, upper := objective.Box(obj, start, BaselineRadius)
	searcher := opt.NewMayfly(b.MaxIters, b.PopSize, b.Seed)

	started := time.Now()
	best, loss := searcher.Search(func(x []float64) float64 {
		return obj.Loss(vec.Vector(x))
	}, lower.Floats(), upper.Floats(), obj.Dim())

	return &BaselineResult{
		Params:  vec.Vector(best),
		Loss:    loss,
		Elapsed: time.Since(started),
	}
}
