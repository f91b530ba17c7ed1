package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/descentbench/internal/bench"
	"github.com/cwbudde/descentbench/internal/config"
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/store"
	"github.com/cwbudde/descentbench/internal/trial"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Finished reports whether the job can no longer change.
func (s JobState) Finished() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// TrialStatus is the live progress of one optimizer within a job
type TrialStatus struct {
	Name      string       `json:"name"`
	Kind      opt.Kind     `json:"kind"`
	Iteration int          `json:"iteration"`
	Total     int          `json:"total"`
	Loss      store.Number `json:"loss"`
	BestLoss  store.Number `json:"bestLoss"`
	Stopped   string       `json:"stopped,omitempty"`
}

// Job represents one comparison run. Its ID doubles as the run ID under
// which checkpoints and traces are stored.
type Job struct {
	ID        string        `json:"id"`
	State     JobState      `json:"state"`
	Config    config.Run    `json:"config"`
	Trials    []TrialStatus `json:"trials"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Error     string        `json:"error,omitempty"`

	report *bench.Report
	cancel context.CancelFunc
}

// Elapsed returns the running time of the job so far.
func (j *Job) Elapsed() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

// Steps returns the number of steps taken over all trials.
func (j *Job) Steps() int {
	n := 0
	for _, t := range j.Trials {
		n += t.Iteration
	}
	return n
}

// snapshot copies the exported state of j.
func (j *Job) snapshot() *Job {
	c := *j
	c.Trials = append([]TrialStatus(nil), j.Trials...)
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	c.cancel = nil
	return &c
}

// observe folds one progress report into the trial statuses.
func (j *Job) observe(p trial.Progress) {
	for i := range j.Trials {
		if j.Trials[i].Name == p.Trial {
			j.Trials[i].Iteration = p.Iteration
			j.Trials[i].Total = p.Total
			j.Trials[i].Loss = store.Number(p.Loss)
			j.Trials[i].BestLoss = store.Number(p.BestLoss)
			return
		}
	}
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(cfg config.Run) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    cfg,
		Trials:    make([]TrialStatus, len(cfg.Optimizers)),
		StartTime: time.Now(),
	}
	for i, spec := range cfg.Optimizers {
		kind, _ := opt.ParseKind(string(spec.Kind))
		job.Trials[i] = TrialStatus{Name: spec.Label(), Kind: kind, Total: cfg.Iters}
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob retrieves a snapshot of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}

// Report returns the results of a job once it has any.
func (jm *JobManager) Report(id string) (*bench.Report, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists || job.report == nil {
		return nil, false
	}
	return job.report, true
}

// setCancel registers the function that stops a job's worker.
func (jm *JobManager) setCancel(id string, cancel context.CancelFunc) {
	jm.UpdateJob(id, func(j *Job) {
		j.cancel = cancel
	})
}

// CancelJob stops a pending or running job. Cancelling a finished job is an
// error.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists {
		jm.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	if job.State.Finished() {
		jm.mu.Unlock()
		return fmt.Errorf("job %s already %s", id, job.State)
	}
	cancel := job.cancel
	if cancel == nil {
		// No worker yet
		endTime := time.Now()
		job.State = StateCancelled
		job.EndTime = &endTime
	}
	jm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
