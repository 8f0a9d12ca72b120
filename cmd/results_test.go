package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/dfopt/internal/store"
)

func ids(infos []store.RunInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testInfos(now time.Time) []store.RunInfo {
	return []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	toDelete := selectRunsForDeletion(testInfos(now), 0, 7, now)

	want := []string{"run4", "run1"}
	if got := ids(toDelete); !equalIDs(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	toDelete := selectRunsForDeletion(testInfos(now), 2, 0, now)

	want := []string{"run4", "run1"}
	if got := ids(toDelete); !equalIDs(got, want) {
		t.Errorf("Expected oldest two %v, got %v", want, got)
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := append(testInfos(now), store.RunInfo{ID: "run5", Timestamp: now.AddDate(0, 0, -2)})

	// keep 2 removes run2, run1, run4; the age limit adds nothing new
	toDelete := selectRunsForDeletion(infos, 2, 7, now)

	want := []string{"run4", "run1", "run2"}
	if got := ids(toDelete); !equalIDs(got, want) {
		t.Errorf("Expected %v without duplicates, got %v", want, got)
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	now := time.Now()
	if toDelete := selectRunsForDeletion(testInfos(now), 10, 0, now); len(toDelete) != 0 {
		t.Errorf("Expected no deletions, got %v", ids(toDelete))
	}
	if toDelete := selectRunsForDeletion(testInfos(now), 0, 60, now); len(toDelete) != 0 {
		t.Errorf("Expected no deletions, got %v", ids(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	sub := filepath.Join(tmpDir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "more.txt"), content, 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != int64(2*len(content)) {
		t.Errorf("Expected size %d, got %d", 2*len(content), size)
	}

	if _, err := getDirSize(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestListAndShowRuns(t *testing.T) {
	dir := t.TempDir()
	runs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := listRuns(&out, runs, dir); err != nil {
		t.Fatalf("listRuns failed: %v", err)
	}
	if !strings.Contains(out.String(), "No runs found.") {
		t.Errorf("Unexpected empty listing: %q", out.String())
	}

	record := store.NewRunRecord("0123456789abcdef", []float64{0.5, -0.25}, 0.3125, 12345, 900, false, "exhausted",
		store.RunConfig{Algorithm: "esch", Function: "sphere", Dimension: 2, MaxEvaluations: 12345, Seed: 9})
	if err := runs.SaveRun(record); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := listRuns(&out, runs, dir); err != nil {
		t.Fatalf("listRuns failed: %v", err)
	}
	for _, want := range []string{"01234567", "esch", "sphere", "12,345", "exhausted", "Total runs: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Listing missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := showRun(&out, runs, dir, record.ID); err != nil {
		t.Fatalf("showRun failed: %v", err)
	}
	for _, want := range []string{record.ID, "0.3125", "[0.5 -0.25]", "Trace:", "none"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Details missing %q:\n%s", want, out.String())
		}
	}

	if err := showRun(&out, runs, dir, "missing"); err == nil {
		t.Error("Expected error for unknown run")
	}
}

func TestDeleteRuns(t *testing.T) {
	dir := t.TempDir()
	runs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	record := store.NewRunRecord("keep-me-not", []float64{1}, 1, 10, 1, false, "exhausted",
		store.RunConfig{Algorithm: "crs", Function: "sphere", Dimension: 1})
	if err := runs.SaveRun(record); err != nil {
		t.Fatal(err)
	}

	deleted, failed := deleteRuns(runs, []store.RunInfo{record.ToInfo(), {ID: "ghost"}})
	if deleted != 1 || failed != 1 {
		t.Errorf("Expected 1 deleted and 1 failed, got %d and %d", deleted, failed)
	}
}
