// Package config defines optimizer comparison runs and loads them from
// files, environment and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/descentbench/internal/objective"
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/store"
	"github.com/cwbudde/descentbench/internal/trial"
	"github.com/cwbudde/descentbench/internal/vec"
)

// Run describes one comparison: several optimizers started from the same
// point on the same objective.
type Run struct {
	Objective   objective.Spec          `json:"objective" mapstructure:"objective"`
	Start       []float64               `json:"start" mapstructure:"start"`
	Iters       int                     `json:"iters" mapstructure:"iters"`
	Optimizers  []opt.Spec              `json:"optimizers" mapstructure:"optimizers"`
	Convergence trial.ConvergenceConfig `json:"convergence" mapstructure:"convergence"`
	// CheckpointEvery persists every trial each n steps; 0 only saves the end.
	CheckpointEvery int      `json:"checkpointEvery" mapstructure:"checkpoint_every"`
	Baseline        Baseline `json:"baseline" mapstructure:"baseline"`
}

// Baseline configures the gradient-free reference search run next to the
// optimizers.
type Baseline struct {
	Enabled  bool  `json:"enabled" mapstructure:"enabled"`
	MaxIters int   `json:"maxIters" mapstructure:"max_iters"`
	PopSize  int   `json:"popSize" mapstructure:"pop_size"`
	// Seed 0 selects the default seed.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// Default returns the classic comparison: the elliptic bowl 1*x² + 5*y²
// from (5, 5), 100 steps, every optimizer at its customary learning rate.
func Default() Run {
	convergence := trial.DefaultConvergenceConfig()
	convergence.Enabled = false
	return Run{
		Objective:   objective.Spec{Name: "elliptic"},
		Start:       []float64{5, 5},
		Iters:       100,
		Optimizers:  DefaultOptimizers(),
		Convergence: convergence,
		Baseline:    DefaultBaseline(),
	}
}

func DefaultOptimizers() []opt.Spec {
	return []opt.Spec{
		{Kind: opt.KindSGD, LR: 0.05},
		{Kind: opt.KindMomentum, LR: 0.05},
		{Kind: opt.KindNesterov, LR: 0.05},
		{Kind: opt.KindAdaGrad, LR: 0.5},
		{Kind: opt.KindRMSProp, LR: 0.1},
		{Kind: opt.KindAdam, LR: 0.1},
	}
}

func DefaultBaseline() Baseline {
	return Baseline{MaxIters: 200, PopSize: 20, Seed: 1}
}

// FillDefaults sets every unset field except Iters to its default. The
// default start point only applies to 2-dimensional objectives.
func (r *Run) FillDefaults() {
	def := Default()
	if r.Objective.Name == "" {
		r.Objective = def.Objective
	}
	if r.Start == nil {
		if obj, err := objective.New(r.Objective); err == nil && obj.Dim() == len(def.Start) {
			r.Start = def.Start
		}
	}
	if len(r.Optimizers) == 0 {
		r.Optimizers = def.Optimizers
	}
	if r.Convergence.Patience == 0 && r.Convergence.Threshold == 0 {
		r.Convergence.Patience = def.Convergence.Patience
		r.Convergence.Threshold = def.Convergence.Threshold
	}
	if r.Baseline.MaxIters == 0 {
		r.Baseline.MaxIters = def.Baseline.MaxIters
	}
	if r.Baseline.PopSize == 0 {
		r.Baseline.PopSize = def.Baseline.PopSize
	}
	if r.Baseline.Seed == 0 {
		r.Baseline.Seed = def.Baseline.Seed
	}
}

// Validate checks the run without starting it.
func (r Run) Validate() error {
	obj, err := objective.New(r.Objective)
	if err != nil {
		return fmt.Errorf("invalid objective: %w", err)
	}
	if len(r.Start) != obj.Dim() {
		return errors.WithStack(&opt.ShapeMismatchError{Name: "start", Want: obj.Dim(), Got: len(r.Start)})
	}
	if !vec.Vector(r.Start).IsFinite() {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "start", Value: r.Start, Message: "must be finite"})
	}
	if r.Iters < 0 {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "iters", Value: r.Iters, Message: "must not be negative"})
	}
	if r.CheckpointEvery < 0 {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "checkpoint_every", Value: r.CheckpointEvery, Message: "must not be negative"})
	}
	if len(r.Optimizers) == 0 {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "optimizers", Value: 0, Message: "at least one optimizer is required"})
	}
	if r.Convergence.Enabled && (r.Convergence.Patience <= 0 || r.Convergence.Threshold < 0) {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "convergence", Value: r.Convergence, Message: "patience must be positive and threshold non-negative"})
	}
	if r.Baseline.Enabled && (r.Baseline.MaxIters <= 0 || r.Baseline.PopSize < 20) {
		return errors.WithStack(&opt.InvalidArgumentError{Name: "baseline", Value: r.Baseline, Message: "max_iters must be positive and pop_size at least 20"})
	}

	keys := make(map[string]string, len(r.Optimizers))
	for i, spec := range r.Optimizers {
		if _, err := spec.Build(obj.Dim()); err != nil {
			return fmt.Errorf("invalid optimizer %d (%s): %w", i, spec.Label(), err)
		}
		label := spec.Label()
		key := store.TrialKey(label)
		if key == "" {
			return errors.WithStack(&opt.InvalidArgumentError{Name: "name", Value: label, Message: "optimizer name has no letters or digits"})
		}
		if other, ok := keys[key]; ok {
			return errors.WithStack(&opt.InvalidArgumentError{
				Name:    "name",
				Value:   label,
				Message: fmt.Sprintf("collides with %q; give one of them a distinct name", other),
			})
		}
		keys[key] = label
	}
	return nil
}

// Build validates r and constructs its objective and trials. Every trial
// gets its own optimizer instance.
func (r Run) Build() (objective.Objective, []trial.Trial, error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	obj, err := objective.New(r.Objective)
	if err != nil {
		return nil, nil, err
	}
	trials := make([]trial.Trial, len(r.Optimizers))
	for i, spec := range r.Optimizers {
		o, err := spec.Build(obj.Dim())
		if err != nil {
			return nil, nil, err
		}
		trials[i] = trial.Trial{
			Name:      spec.Label(),
			Optimizer: o,
			Objective: obj,
			Start:     vec.Vector(r.Start).Clone(),
			Iters:     r.Iters,
		}
	}
	return obj, trials, nil
}

// TrialConfig returns the checkpoint copy of the configuration of trial i.
func (r Run) TrialConfig(i int) store.TrialConfig {
	return store.TrialConfig{
		Objective: r.Objective,
		Optimizer: r.Optimizers[i],
		Start:     append([]float64(nil), r.Start...),
		Iters:     r.Iters,
		Order:     i,
	}
}

// Options returns the trial options implied by r.
func (r Run) Options() []trial.Option {
	if !r.Convergence.Enabled {
		return nil
	}
	return []trial.Option{trial.WithConvergence(r.Convergence)}
}

// Labels returns the trial names in order.
func (r Run) Labels() []string {
	labels := make([]string, len(r.Optimizers))
	for i, spec := range r.Optimizers {
		labels[i] = spec.Label()
	}
	return labels
}

func (r Run) String() string {
	return fmt.Sprintf("%s from %v, %d iterations, optimizers [%s]",
		r.Objective.Name, r.Start, r.Iters, strings.Join(r.Labels(), ", "))
}
