package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/descentbench/internal/server"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		// List all jobs
		return listJobs(os.Stdout, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	// Get specific job status
	jobID := args[0]
	return getJobStatus(os.Stdout, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// jobStatus mirrors the status response of the server.
type jobStatus struct {
	ID             string               `json:"id"`
	State          server.JobState      `json:"state"`
	Trials         []server.TrialStatus `json:"trials"`
	Steps          int                  `json:"steps"`
	Elapsed        float64              `json:"elapsed"`
	StepsPerSecond float64              `json:"stepsPerSecond"`
	Error          string               `json:"error"`
	Config         struct {
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		Start []float64 `json:"start"`
		Iters int       `json:"iters"`
	} `json:"config"`
}

func fetchJSON(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &httpError{status: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("server returned error: %s", e.body)
}

func listJobs(w io.Writer, url string) error {
	var jobs []server.Job
	if err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", job.ID)
		fmt.Fprintf(w, "  State: %s\n", job.State)
		fmt.Fprintf(w, "  Objective: %s from %v\n", job.Config.Objective.Name, job.Config.Start)
		fmt.Fprintf(w, "  Steps: %d/%d\n", job.Steps(), job.Config.Iters*len(job.Trials))
		fmt.Fprintln(w)
	}

	return nil
}

func getJobStatus(w io.Writer, url, jobID string) error {
	var status jobStatus
	if err := fetchJSON(url, &status); err != nil {
		var he *httpError
		if errors.As(err, &he) && he.status == http.StatusNotFound {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}

	// Display status
	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Objective: %s\n", status.Config.Objective.Name)
	fmt.Fprintf(w, "  Start: %v\n", status.Config.Start)
	fmt.Fprintf(w, "  Iterations: %d\n", status.Config.Iters)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TRIAL\tSTEP\tLOSS\tBEST LOSS\tSTOPPED")
	for _, t := range status.Trials {
		fmt.Fprintf(tw, "  %s\t%d/%d\t%.6g\t%.6g\t%s\n", t.Name, t.Iteration, t.Total, float64(t.Loss), float64(t.BestLoss), t.Stopped)
	}
	tw.Flush()

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "\n  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.StepsPerSecond > 0 {
		fmt.Fprintf(w, "  Throughput: %.0f steps/sec\n", status.StepsPerSecond)
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}

	return nil
}
