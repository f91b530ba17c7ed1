package store

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/cwbudde/descentbench/internal/objective"
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/trial"
)

// TrialConfig holds the configuration of one trial (checkpoint copy).
type TrialConfig struct {
	Objective objective.Spec `json:"objective"`
	Optimizer opt.Spec       `json:"optimizer"`
	Start     []float64      `json:"start"`
	Iters     int            `json:"iters"`
	// Order is the position of the trial within its run.
	Order int `json:"order"`
}

// Checkpoint represents the saved state of one trial, from which it can be
// continued exactly.
//
// Unlike a population-based search, a first-order optimizer has a small,
// fully serializable state (velocity, accumulators, moments, step counter),
// so a checkpoint carries the complete optimizer state and a resumed trial
// produces the same trajectory as an uninterrupted one.
type Checkpoint struct {
	// RunID identifies the comparison run this trial belongs to
	RunID string `json:"runId"`

	// Trial is the trial name, usually the optimizer label
	Trial string `json:"trial"`

	// Params is the current point of the trial
	Params []float64 `json:"params"`

	// Loss is the objective value at Params
	Loss Number `json:"loss"`

	// InitialLoss is the objective value at the original start point
	InitialLoss Number `json:"initialLoss"`

	// BestLoss is the lowest loss seen so far
	BestLoss Number `json:"bestLoss"`

	// Iteration is the number of steps taken since the original start
	Iteration int `json:"iteration"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// State is the optimizer's internal state after Iteration steps
	State opt.State `json:"state"`

	// Config holds the trial configuration, needed for validation during resume
	Config TrialConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without parameter or
// state data.
type CheckpointInfo struct {
	RunID     string    `json:"runId"`
	Trial     string    `json:"trial"`
	Kind      opt.Kind  `json:"kind"`
	Objective string    `json:"objective"`
	Loss      Number    `json:"loss"`
	BestLoss  Number    `json:"bestLoss"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCheckpoint creates a checkpoint from a trial checkpoint.
func NewCheckpoint(runID string, cp trial.Checkpoint, config TrialConfig) *Checkpoint {
	return &Checkpoint{
		RunID:       runID,
		Trial:       cp.Trial,
		Params:      cp.Params.Floats(),
		Loss:        Number(cp.Loss),
		InitialLoss: Number(cp.InitialLoss),
		BestLoss:    Number(cp.BestLoss),
		Iteration:   cp.Iteration,
		Timestamp:   time.Now(),
		State:       cp.State,
		Config:      config,
	}
}

// ResumePoint returns what a trial needs to continue from c.
func (c *Checkpoint) ResumePoint() *trial.ResumePoint {
	return &trial.ResumePoint{
		Iteration:   c.Iteration,
		InitialLoss: float64(c.InitialLoss),
		BestLoss:    float64(c.BestLoss),
		State:       c.State,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:     c.RunID,
		Trial:     c.Trial,
		Kind:      c.State.Kind,
		Objective: c.Config.Objective.Name,
		Loss:      c.Loss,
		BestLoss:  c.BestLoss,
		Iteration: c.Iteration,
		Timestamp: c.Timestamp,
	}
}

// Validate checks if the checkpoint has valid data.
// Returns an error if any required field is missing or invalid.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if c.Trial == "" {
		return &ValidationError{Field: "Trial", Reason: "cannot be empty"}
	}
	if len(c.Params) == 0 {
		return &ValidationError{Field: "Params", Reason: "cannot be empty"}
	}
	if !finite(c.Params) {
		return &ValidationError{Field: "Params", Reason: "must be finite"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Objective.Name == "" {
		return &ValidationError{Field: "Config.Objective.Name", Reason: "cannot be empty"}
	}
	if c.Config.Iters <= 0 {
		return &ValidationError{Field: "Config.Iters", Reason: "must be positive"}
	}
	if len(c.Params) != len(c.Config.Start) {
		return &ValidationError{
			Field:  "Params",
			Reason: fmt.Sprintf("length mismatch: expected %d params for start %v", len(c.Config.Start), c.Config.Start),
		}
	}
	kind, err := opt.ParseKind(string(c.Config.Optimizer.Kind))
	if err != nil {
		return &ValidationError{Field: "Config.Optimizer.Kind", Reason: err.Error()}
	}
	if c.State.Kind != kind {
		return &ValidationError{
			Field:  "State.Kind",
			Reason: fmt.Sprintf("expected %s, got %q", kind, c.State.Kind),
		}
	}
	if c.State.Step < 0 {
		return &ValidationError{Field: "State.Step", Reason: "cannot be negative"}
	}
	for name, buf := range c.State.Buffers {
		if len(buf) != len(c.Params) {
			return &ValidationError{Field: "State.Buffers." + name, Reason: "length must match Params"}
		}
		if !finite(buf) {
			return &ValidationError{Field: "State.Buffers." + name, Reason: "must be finite"}
		}
	}
	return nil
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
// The optimizer kind, objective and dimension must agree; hyperparameters
// may differ.
func (c *Checkpoint) IsCompatible(config TrialConfig) error {
	if !strings.EqualFold(c.Config.Objective.Name, config.Objective.Name) {
		return &CompatibilityError{
			Field:    "Objective",
			Expected: c.Config.Objective.Name,
			Actual:   config.Objective.Name,
		}
	}
	want, _ := opt.ParseKind(string(c.Config.Optimizer.Kind))
	got, _ := opt.ParseKind(string(config.Optimizer.Kind))
	if want != got {
		return &CompatibilityError{
			Field:    "Optimizer",
			Expected: string(c.Config.Optimizer.Kind),
			Actual:   string(config.Optimizer.Kind),
		}
	}
	if len(c.Params) != len(config.Start) {
		return &CompatibilityError{
			Field:    "Dimension",
			Expected: fmt.Sprintf("%d", len(c.Params)),
			Actual:   fmt.Sprintf("%d", len(config.Start)),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

// TrialKey turns a trial name into a directory name: lower case, with runs
// of anything other than letters and digits replaced by a single dash.
func TrialKey(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
