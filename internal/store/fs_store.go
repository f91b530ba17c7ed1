package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Checkpoints are stored in a directory structure: <baseDir>/runs/<runID>/<trialKey>/
//
// Thread-safety: This implementation uses atomic file operations (rename)
// and does not require locks. Multiple goroutines can safely call methods
// concurrently, as long as no two of them write the same trial.
type FSStore struct {
	baseDir string // Root directory for all run data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) runsDir() string {
	return filepath.Join(fs.baseDir, "runs")
}

// runDir returns the directory path for a given run ID.
func (fs *FSStore) runDir(runID string) string {
	return filepath.Join(fs.runsDir(), runID)
}

// trialDir returns the directory of one trial of a run.
func (fs *FSStore) trialDir(runID, trial string) string {
	return filepath.Join(fs.runDir(runID), TrialKey(trial))
}

// checkpointPath returns the path to the checkpoint.json file for a trial.
func (fs *FSStore) checkpointPath(runID, trial string) string {
	return filepath.Join(fs.trialDir(runID, trial), "checkpoint.json")
}

// SaveCheckpoint atomically saves a checkpoint for one trial of a run.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveCheckpoint(runID string, checkpoint *Checkpoint) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint cannot be nil")
	}
	if checkpoint.RunID != runID {
		return fmt.Errorf("checkpoint belongs to run %q, not %q", checkpoint.RunID, runID)
	}
	if err := checkpoint.Validate(); err != nil {
		return err
	}
	if TrialKey(checkpoint.Trial) == "" {
		return &ValidationError{Field: "Trial", Reason: "must contain a letter or digit"}
	}

	trialDir := fs.trialDir(runID, checkpoint.Trial)
	if err := os.MkdirAll(trialDir, 0755); err != nil {
		return fmt.Errorf("failed to create trial directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	finalPath := fs.checkpointPath(runID, checkpoint.Trial)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	slog.Debug("Checkpoint saved", "runID", runID, "trial", checkpoint.Trial, "iteration", checkpoint.Iteration, "path", finalPath)
	return nil
}

// LoadCheckpoint retrieves the checkpoint of one trial of a run.
func (fs *FSStore) LoadCheckpoint(runID, trial string) (*Checkpoint, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	return fs.loadPath(fs.checkpointPath(runID, trial), runID, trial)
}

func (fs *FSStore) loadPath(path, runID, trial string) (*Checkpoint, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID, Trial: trial}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	slog.Debug("Checkpoint loaded", "runID", runID, "trial", trial, "path", path)
	return &checkpoint, nil
}

// LoadRun retrieves every checkpoint of a run in trial order.
func (fs *FSStore) LoadRun(runID string) ([]*Checkpoint, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	entries, err := os.ReadDir(fs.runDir(runID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}

	var checkpoints []*Checkpoint
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(fs.runDir(runID), entry.Name(), "checkpoint.json")
		checkpoint, err := fs.loadPath(path, runID, entry.Name())
		if err != nil {
			if isNotFound(err) {
				continue // Trial without checkpoint yet
			}
			return nil, err
		}
		checkpoints = append(checkpoints, checkpoint)
	}
	if len(checkpoints) == 0 {
		return nil, &NotFoundError{RunID: runID}
	}

	sortCheckpoints(checkpoints)
	return checkpoints, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

func sortCheckpoints(checkpoints []*Checkpoint) {
	sort.SliceStable(checkpoints, func(i, j int) bool {
		if checkpoints[i].Config.Order != checkpoints[j].Config.Order {
			return checkpoints[i].Config.Order < checkpoints[j].Config.Order
		}
		return checkpoints[i].Trial < checkpoints[j].Trial
	})
}

// ListCheckpoints returns metadata for all available checkpoints, grouped
// by run and ordered by trial within each run.
func (fs *FSStore) ListCheckpoints() ([]CheckpointInfo, error) {
	runsDir := fs.runsDir()

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []CheckpointInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat runs directory: %w", err)
	}

	runs, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := []CheckpointInfo{}
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}

		checkpoints, err := fs.LoadRun(run.Name())
		if err != nil {
			if !isNotFound(err) {
				slog.Warn("Failed to load run for listing", "runID", run.Name(), "error", err)
			}
			continue // Skip empty or corrupted runs
		}
		for _, checkpoint := range checkpoints {
			infos = append(infos, checkpoint.ToInfo())
		}
	}

	slog.Debug("Listed checkpoints", "count", len(infos))
	return infos, nil
}

// DeleteRun removes a run directory and all its contents.
func (fs *FSStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.runDir(runID)

	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "runID", runID, "path", runDir)
	return nil
}
