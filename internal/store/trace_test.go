package store

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/descentbench/internal/trial"
	"github.com/cwbudde/descentbench/internal/vec"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-123"

	writer, err := NewTraceWriter(tmpDir, runID, "Adam", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 1, Loss: 1.0, Timestamp: time.Now()},
		{Iteration: 2, Loss: 0.8, Timestamp: time.Now()},
		{Iteration: 3, Loss: 0.6, Timestamp: time.Now(), Params: Numbers{1, 2}},
		{Iteration: 4, Loss: 0.4, Timestamp: time.Now()},
	}

	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "runs", runID, "adam", "trace.jsonl")
	if writer.Path() != tracePath {
		t.Errorf("Expected path %s, got %s", tracePath, writer.Path())
	}
	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", tracePath)
	}

	readEntries, err := ReadTrace(tmpDir, runID, "Adam")
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}

	if len(readEntries) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(readEntries))
	}

	for i, entry := range readEntries {
		if entry.Iteration != entries[i].Iteration {
			t.Errorf("Entry %d: expected iteration %d, got %d", i, entries[i].Iteration, entry.Iteration)
		}
		if entry.Loss != entries[i].Loss {
			t.Errorf("Entry %d: expected loss %f, got %f", i, entries[i].Loss, entry.Loss)
		}
		if len(entry.Params) != len(entries[i].Params) {
			t.Errorf("Entry %d: expected %d params, got %d", i, len(entries[i].Params), len(entry.Params))
		}
	}
}

func TestTraceWriter_RecordsTrialSteps(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "run", "SGD", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	var recorder trial.Recorder = writer
	steps := []trial.Step{
		{Trial: "SGD", Iteration: 1, Params: vec.Of(4.5, 2.5), Loss: 51.5},
		{Trial: "SGD", Iteration: 2, Params: vec.Of(math.Inf(1), math.NaN()), Loss: math.NaN()},
	}
	for _, step := range steps {
		if err := recorder.Record(step); err != nil {
			t.Fatalf("Failed to record step: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries, err := ReadTrace(tmpDir, "run", "SGD")
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Loss != 51.5 || entries[0].Params[0] != 4.5 {
		t.Errorf("First entry mismatch: %+v", entries[0])
	}
	if !math.IsNaN(float64(entries[1].Loss)) {
		t.Errorf("Expected NaN loss, got %v", entries[1].Loss)
	}
	if !math.IsInf(entries[1].Params[0], 1) || !math.IsNaN(entries[1].Params[1]) {
		t.Errorf("Expected non-finite params to survive, got %v", entries[1].Params)
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-append"

	writer, err := NewTraceWriter(tmpDir, runID, "Nesterov", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if err := writer.Write(TraceEntry{Iteration: 1, Loss: 1.0, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	// Resume appends to the same trace
	writer, err = NewTraceWriter(tmpDir, runID, "Nesterov", true)
	if err != nil {
		t.Fatalf("Failed to create trace writer in append mode: %v", err)
	}
	if err := writer.Write(TraceEntry{Iteration: 2, Loss: 0.8, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	entries, err := ReadTrace(tmpDir, runID, "Nesterov")
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Iteration != 1 {
		t.Errorf("First entry: expected iteration 1, got %d", entries[0].Iteration)
	}
	if entries[1].Iteration != 2 {
		t.Errorf("Second entry: expected iteration 2, got %d", entries[1].Iteration)
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "run-flush", "RMSProp", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(TraceEntry{Iteration: 1, Loss: 1.0, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}

	if err := writer.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	// Data should be on disk now (even without closing)
	data, err := os.ReadFile(writer.Path())
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Trace file is empty after flush")
	}
}

func TestTraceWriter_EmptyNames(t *testing.T) {
	if _, err := NewTraceWriter(t.TempDir(), "", "Adam", false); err == nil {
		t.Error("Expected error for empty runID")
	}
	if _, err := NewTraceWriter(t.TempDir(), "run", " ", false); err == nil {
		t.Error("Expected error for empty trial name")
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-iter"

	writer, err := NewTraceWriter(tmpDir, runID, "AdaGrad", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := writer.Write(TraceEntry{Iteration: i, Loss: Number(1.0 - float64(i)*0.1), Timestamp: time.Now()}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, runID, "AdaGrad")
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		entry, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read entry: %v", err)
		}
		count++
		if entry.Iteration != count {
			t.Errorf("Expected iteration %d, got %d", count, entry.Iteration)
		}
	}

	if count != 5 {
		t.Errorf("Expected 5 entries, got %d", count)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing", "Adam")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestTraceReader_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "runs", "run", "adam", "trace.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("{\"iteration\":1,\"loss\":1}\nnot json\n"), 0644); err != nil {
		t.Fatalf("Failed to write trace: %v", err)
	}

	_, err := ReadTrace(tmpDir, "run", "Adam")
	if err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Errorf("Expected unmarshal error, got %v", err)
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "run", "Adam", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	writer.Close()

	if err := DeleteTrace(tmpDir, "run", "Adam"); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(writer.Path()); !os.IsNotExist(err) {
		t.Error("Trace file still exists after delete")
	}

	// Deleting again is not an error
	if err := DeleteTrace(tmpDir, "run", "Adam"); err != nil {
		t.Errorf("Expected nil for missing trace, got %v", err)
	}
}

func TestTruncateTrace(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-truncate"

	writer, err := NewTraceWriter(tmpDir, runID, "SGD", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for i := 1; i <= 10; i++ {
		if err := writer.Write(TraceEntry{Iteration: i, Loss: Number(10 - i), Timestamp: time.Now()}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	writer.Close()

	if err := TruncateTrace(tmpDir, runID, "SGD", 6); err != nil {
		t.Fatalf("TruncateTrace failed: %v", err)
	}

	entries, err := ReadTrace(tmpDir, runID, "SGD")
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("Expected 6 entries, got %d", len(entries))
	}
	if entries[5].Iteration != 6 {
		t.Errorf("Expected last iteration 6, got %d", entries[5].Iteration)
	}

	// Truncating beyond the end changes nothing
	if err := TruncateTrace(tmpDir, runID, "SGD", 100); err != nil {
		t.Fatalf("TruncateTrace failed: %v", err)
	}
	entries, _ = ReadTrace(tmpDir, runID, "SGD")
	if len(entries) != 6 {
		t.Errorf("Expected 6 entries, got %d", len(entries))
	}

	// Missing trace is not an error
	if err := TruncateTrace(tmpDir, runID, "Adam", 3); err != nil {
		t.Errorf("Expected nil for missing trace, got %v", err)
	}
}
