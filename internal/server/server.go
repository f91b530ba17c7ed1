package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/plot"

	"github.com/cwbudde/descentbench/internal/bench"
	"github.com/cwbudde/descentbench/internal/config"
	"github.com/cwbudde/descentbench/internal/metrics"
	"github.com/cwbudde/descentbench/internal/report"
	"github.com/cwbudde/descentbench/internal/store"
)

// DefaultIters is used for jobs created without an iteration count
const DefaultIters = 100

// maxRequestBytes bounds the size of a job request body
const maxRequestBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	pipeline   bench.Pipeline
	metrics    *metrics.Metrics
	addr       string
	server     *http.Server

	// jobs run under baseCtx so Shutdown can stop them
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

// NewServer creates a new HTTP server. If fsStore is nil, jobs are neither
// checkpointed nor traced.
func NewServer(addr string, fsStore *store.FSStore) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		jobManager: NewJobManager(),
		metrics:    metrics.New(),
		addr:       addr,
		baseCtx:    ctx,
		cancelJobs: cancel,
	}
	s.pipeline.Metrics = s.metrics
	if fsStore != nil {
		s.store = fsStore
		s.pipeline.Store = fsStore
		s.pipeline.TraceDir = fsStore.BaseDir()
	}
	return s
}

// Handler returns the routed and wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/checkpoints", s.handleListCheckpoints)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// Wrap with middleware
	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancelJobs()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	if len(parts) == 1 && r.Method == http.MethodDelete {
		s.handleCancelJob(w, r, jobID)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetJobStatus(w, r, jobID)
		return
	}
	switch parts[1] {
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "loss.png":
		s.handleGetLossPlot(w, r, jobID)
	case "trajectories.png":
		s.handleGetTrajectoryPlot(w, r, jobID)
	case "summary":
		s.handleGetSummary(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var cfg config.Run
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Validate config
	if cfg.Iters <= 0 {
		cfg.Iters = DefaultIters
	}
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid config: %v", err), http.StatusBadRequest)
		return
	}

	// Create job
	job := s.jobManager.CreateJob(cfg)

	// Start worker in background
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.jobManager.setCancel(job.ID, cancel)
	s.metrics.JobStarted()
	go func() {
		defer s.metrics.JobFinished()
		defer cancel()
		runJob(ctx, s.jobManager, s.pipeline, job.ID)
	}()

	// Return job
	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	elapsed := job.Elapsed()
	steps := job.Steps()
	stepsPerSecond := float64(0)
	if elapsed.Seconds() > 0 {
		stepsPerSecond = float64(steps) / elapsed.Seconds()
	}

	// Create response
	response := map[string]interface{}{
		"id":             job.ID,
		"state":          job.State,
		"config":         job.Config,
		"trials":         job.Trials,
		"steps":          steps,
		"elapsed":        elapsed.Seconds(),
		"stepsPerSecond": stepsPerSecond,
		"startTime":      job.StartTime,
		"endTime":        job.EndTime,
		"error":          job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleCancelJob handles DELETE /api/v1/jobs/:id
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err := s.jobManager.CancelJob(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleGetLossPlot handles GET /api/v1/jobs/:id/loss.png
func (s *Server) handleGetLossPlot(w http.ResponseWriter, r *http.Request, jobID string) {
	rep, ok := s.jobReport(w, jobID)
	if !ok {
		return
	}
	p, err := report.LossPlot(rep.Results)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to plot: %v", err), http.StatusInternalServerError)
		return
	}
	writePNG(w, p)
}

// handleGetTrajectoryPlot handles GET /api/v1/jobs/:id/trajectories.png
func (s *Server) handleGetTrajectoryPlot(w http.ResponseWriter, r *http.Request, jobID string) {
	rep, ok := s.jobReport(w, jobID)
	if !ok {
		return
	}
	if rep.Objective.Dim() != 2 {
		http.Error(w, "Trajectories can only be drawn for 2-dimensional objectives", http.StatusBadRequest)
		return
	}
	p, err := report.TrajectoryPlot(rep.Objective, rep.Results)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to plot: %v", err), http.StatusInternalServerError)
		return
	}
	writePNG(w, p)
}

// handleGetSummary handles GET /api/v1/jobs/:id/summary
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request, jobID string) {
	rep, ok := s.jobReport(w, jobID)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := rep.Summary(&buf); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write summary: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleListCheckpoints handles GET /api/v1/checkpoints
func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.CheckpointInfo{})
		return
	}
	infos, err := s.store.ListCheckpoints()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list checkpoints: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// jobReport fetches the results of a job, writing the error response if
// there are none.
func (s *Server) jobReport(w http.ResponseWriter, jobID string) (*bench.Report, bool) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	rep, ok := s.jobManager.Report(jobID)
	if !ok || len(rep.Results) == 0 {
		http.Error(w, "No results yet", http.StatusNotFound)
		return nil, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writePNG renders into a buffer first so a failure can still produce an
// error status.
func writePNG(w http.ResponseWriter, p *plot.Plot) {
	var buf bytes.Buffer
	if err := report.WritePNG(p, &buf); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render image: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
