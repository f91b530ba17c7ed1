package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/descentbench/internal/server"
)

func TestListJobs_Empty(t *testing.T) {
	srv := httptest.NewServer(server.NewServer(":0", nil).Handler())
	defer srv.Close()

	var out bytes.Buffer
	if err := listJobs(&out, srv.URL+"/api/v1/jobs"); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if !strings.Contains(out.String(), "No jobs found") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestStatus_CompletedJob(t *testing.T) {
	s := server.NewServer(":0", nil)
	defer s.Shutdown(context.Background())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(`{"iters": 10}`))
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	var job server.Job
	json.NewDecoder(resp.Body).Decode(&job)
	resp.Body.Close()

	// Wait for the job to finish
	var out bytes.Buffer
	statusURL := srv.URL + "/api/v1/jobs/" + job.ID + "/status"
	for i := 0; i < 100; i++ {
		out.Reset()
		if err := getJobStatus(&out, statusURL, job.ID); err != nil {
			t.Fatalf("getJobStatus failed: %v", err)
		}
		if strings.Contains(out.String(), "State: completed") {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	body := out.String()
	for _, want := range []string{"State: completed", "Objective: elliptic", "Iterations: 10", "RMSProp", "10/10"} {
		if !strings.Contains(body, want) {
			t.Errorf("Status should contain %q:\n%s", want, body)
		}
	}

	out.Reset()
	if err := listJobs(&out, srv.URL+"/api/v1/jobs"); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if !strings.Contains(out.String(), "Steps: 60/60") {
		t.Errorf("Job list should show steps:\n%s", out.String())
	}
}

func TestStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(server.NewServer(":0", nil).Handler())
	defer srv.Close()

	var out bytes.Buffer
	err := getJobStatus(&out, srv.URL+"/api/v1/jobs/missing/status", "missing")
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("Expected job not found error, got %v", err)
	}
}
