package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/stride/internal/store"
)

func TestSelectResultsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}

	// Delete results older than 7 days
	toDelete := selectResultsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}

	found10 := false
	found30 := false
	for _, info := range toDelete {
		if info.RunID == "run1" {
			found10 = true
		}
		if info.RunID == "run4" {
			found30 = true
		}
	}

	if !found10 || !found30 {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectResultsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Keep only last 2 results
	toDelete := selectResultsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}

	// Should delete the oldest two (run4 and run1)
	found30 := false
	found10 := false
	for _, info := range toDelete {
		if info.RunID == "run4" {
			found30 = true
		}
		if info.RunID == "run1" {
			found10 = true
		}
	}

	if !found30 || !found10 {
		t.Error("Expected run4 and run1 to be selected for deletion (oldest)")
	}
}

func TestSelectResultsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
		{RunID: "run5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Delete older than 7 days AND keep only last 3; run4 and run1 satisfy
	// both criteria, so the union stays at two entries.
	toDelete := selectResultsForDeletion(infos, 3, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestResultsListCommand_NoResults(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsListCommand_WithResults(t *testing.T) {
	tmpDir := t.TempDir()

	resultStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	best := 0.25
	result := &store.Result{
		RunID:      "test-run-id",
		Reason:     "converged",
		Iterations: 120,
		Elapsed:    3 * time.Second,
		BestCost:   &best,
		Timestamp:  time.Now(),
		Spec:       store.RunSpec{Calculation: "sphere"},
	}
	if err := resultStore.SaveResult("test-run-id", result); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsCleanCommand_NoFlags(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	// Reset flags
	keepLast = 0
	olderThanDays = 0

	if err := runCleanResults(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestResultsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()

	resultStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	result := &store.Result{
		RunID:      "old-run",
		Reason:     "max_iterations_reached",
		Iterations: 10,
		Timestamp:  time.Now().AddDate(0, 0, -30),
		Spec:       store.RunSpec{Calculation: "decay"},
	}
	if err := resultStore.SaveResult("old-run", result); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	keepLast = 0
	olderThanDays = 7
	forceClean = true

	if err := runCleanResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Verify the result was deleted
	if _, err := resultStore.LoadResult("old-run"); err == nil {
		t.Error("Expected result to be deleted")
	}
}
