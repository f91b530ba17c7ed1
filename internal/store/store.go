// Package store persists trial checkpoints and step traces on disk.
//
// Layout:
//
//	<baseDir>/runs/<runID>/<trialKey>/checkpoint.json
//	<baseDir>/runs/<runID>/<trialKey>/trace.jsonl
//
// A run is one comparison; each trial of the run (one optimizer) has its own
// directory, named by TrialKey.
package store

// Store defines the interface for checkpoint persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a run or checkpoint doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveCheckpoint atomically saves the checkpoint of one trial of a run.
	// The trial directory is derived from checkpoint.Trial. An existing
	// checkpoint for the same trial is overwritten.
	//
	// The checkpoint is validated first; invalid checkpoints (for example
	// non-finite parameters after divergence) are rejected with a
	// ValidationError.
	SaveCheckpoint(runID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint of one trial of a run.
	// Returns ErrNotFound if it does not exist.
	LoadCheckpoint(runID, trial string) (*Checkpoint, error)

	// LoadRun retrieves every checkpoint of a run, ordered as the trials
	// were in the original comparison. Returns ErrNotFound if the run has
	// no checkpoints.
	LoadRun(runID string) ([]*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints.
	// The returned slice may be empty if no checkpoints exist.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteRun removes a run with all its checkpoints and traces.
	// Returns ErrNotFound if the run does not exist.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run or checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run or checkpoint.
type NotFoundError struct {
	RunID string
	Trial string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.RunID != "" && e.Trial != "":
		return "checkpoint not found: " + e.RunID + "/" + e.Trial
	case e.RunID != "":
		return "checkpoint not found: " + e.RunID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
