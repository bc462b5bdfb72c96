package store

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/cwbudde/stride/internal/runner"
)

func makeEntry(iter uint64, cost float64) TraceEntry {
	return EntryFromMeasurement(runner.Measurement{
		Iteration:    iter,
		Elapsed:      time.Duration(iter+1) * 10 * time.Millisecond,
		StepDuration: 10 * time.Millisecond,
		Cost:         cost,
		HasCost:      true,
		Timestamp:    time.Now(),
	})
}

func TestTraceWriteAndReadBack(t *testing.T) {
	tempDir := t.TempDir()
	runID := "trace-run-1"

	tw, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}

	for i := uint64(0); i < 10; i++ {
		if err := tw.Append(makeEntry(i, 100-float64(i))); err != nil {
			t.Fatalf("Append failed at %d: %v", i, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(tempDir, runID)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("Expected 10 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Iteration != uint64(i) {
			t.Errorf("Entry %d: iteration %d, want %d", i, e.Iteration, i)
		}
		if e.Cost == nil || *e.Cost != 100-float64(i) {
			t.Errorf("Entry %d: unexpected cost %v", i, e.Cost)
		}
	}
}

func TestTraceAppendMode(t *testing.T) {
	tempDir := t.TempDir()
	runID := "trace-run-2"

	tw, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	if err := tw.Append(makeEntry(0, 1.0)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen in append mode; existing entries survive.
	tw, err = NewTraceWriter(tempDir, runID, true)
	if err != nil {
		t.Fatalf("NewTraceWriter (append) failed: %v", err)
	}
	if err := tw.Append(makeEntry(1, 0.5)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(tempDir, runID)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(entries))
	}
}

func TestTraceEntryWithoutCost(t *testing.T) {
	e := EntryFromMeasurement(runner.Measurement{Iteration: 3, Timestamp: time.Now()})
	if e.Cost != nil {
		t.Fatalf("Expected nil cost for costless measurement, got %v", e.Cost)
	}
}

func TestTraceReaderNotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReadEOF(t *testing.T) {
	tempDir := t.TempDir()
	runID := "trace-run-3"

	tw, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(tempDir, runID)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	if _, err := tr.Read(); err != io.EOF {
		t.Fatalf("Expected io.EOF on empty trace, got %v", err)
	}
}

func TestDeleteTrace(t *testing.T) {
	tempDir := t.TempDir()
	runID := "trace-run-4"

	tw, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	path := tw.Path()
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := DeleteTrace(tempDir, runID); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Trace file still exists after delete")
	}

	// Deleting a missing trace is not an error.
	if err := DeleteTrace(tempDir, "missing"); err != nil {
		t.Fatalf("DeleteTrace on missing file failed: %v", err)
	}
}
