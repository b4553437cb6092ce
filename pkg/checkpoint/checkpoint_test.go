package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"igstories/pkg/stories"
)

func TestRunKey(t *testing.T) {
	a := RunKey([]string{"natgeo", "nasa"})
	b := RunKey([]string{" NASA", "natgeo"})
	if a != b {
		t.Errorf("Expected order and case to be ignored, got %s and %s", a, b)
	}
	if a == RunKey([]string{"natgeo"}) {
		t.Error("Expected different target lists to have different keys")
	}
}

func TestCheckpointManager(t *testing.T) {
	targets := []string{"natgeo", "nasa", "bbcnews"}

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(targets)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if cp.RunKey != RunKey(targets) {
			t.Errorf("Expected run key %s, got %s", RunKey(targets), cp.RunKey)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if len(loaded.Targets) != 3 {
			t.Errorf("Expected 3 targets, got %d", len(loaded.Targets))
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cp, err := mgr.Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cp != nil {
			t.Error("Expected nil checkpoint when no file exists")
		}
	})

	t.Run("RecordBatchAndRemaining", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cp, err := mgr.Create(targets)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		res := stories.BatchResult{Account: "NASA", Outcome: stories.ExitedToFeed, Saved: 4, Frames: 5}
		if err := mgr.RecordBatch(cp, res); err != nil {
			t.Fatalf("Failed to record batch: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if !loaded.IsCompleted("nasa") {
			t.Error("Expected nasa to be completed")
		}
		if loaded.TotalSaved != 4 {
			t.Errorf("Expected 4 saved, got %d", loaded.TotalSaved)
		}
		if rec := loaded.Completed["nasa"]; rec.Outcome != "exited_to_feed" {
			t.Errorf("Expected outcome exited_to_feed, got %s", rec.Outcome)
		}

		remaining := loaded.Remaining(targets)
		if len(remaining) != 2 || remaining[0] != "natgeo" || remaining[1] != "bbcnews" {
			t.Errorf("Unexpected remaining targets: %v", remaining)
		}
	})

	t.Run("LoadOrCreateResumes", func(t *testing.T) {
		dir := t.TempDir()
		mgr, err := NewManagerInDir(dir, targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cp, err := mgr.LoadOrCreate(targets)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if err := mgr.RecordBatch(cp, stories.BatchResult{Account: "natgeo", Outcome: stories.NoContent}); err != nil {
			t.Fatalf("Failed to record batch: %v", err)
		}

		again, err := NewManagerInDir(dir, []string{"bbcnews", "nasa", "natgeo"})
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		resumed, err := again.LoadOrCreate(targets)
		if err != nil {
			t.Fatalf("Failed to resume: %v", err)
		}
		if !resumed.IsCompleted("natgeo") {
			t.Error("Expected resumed checkpoint to remember natgeo")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if _, err := mgr.Create(targets); err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if !mgr.Exists() {
			t.Fatal("Expected checkpoint to exist")
		}
		if err := mgr.Delete(); err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to be deleted")
		}
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting a missing checkpoint should not fail: %v", err)
		}
	})

	t.Run("Backup", func(t *testing.T) {
		mgr, err := NewManagerInDir(t.TempDir(), targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if err := mgr.BackupCheckpoint(); err != nil {
			t.Fatalf("Backup of missing checkpoint should be a no-op: %v", err)
		}
		if _, err := mgr.Create(targets); err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if err := mgr.BackupCheckpoint(); err != nil {
			t.Fatalf("Failed to back up checkpoint: %v", err)
		}
		if _, err := os.Stat(mgr.Path() + ".backup"); err != nil {
			t.Errorf("Expected backup file: %v", err)
		}
	})

	t.Run("RejectsOtherVersion", func(t *testing.T) {
		dir := t.TempDir()
		mgr, err := NewManagerInDir(dir, targets)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if err := os.WriteFile(mgr.Path(), []byte(`{"version": 1}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Load(); err == nil {
			t.Error("Expected error for version 1 checkpoint")
		}
	})
}

func TestTrackerRecordsFinishedBatches(t *testing.T) {
	targets := []string{"natgeo", "nasa"}
	mgr, err := NewManagerInDir(t.TempDir(), targets)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	cp, err := mgr.Create(targets)
	if err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}

	var obs stories.Observer = NewTracker(mgr, cp)
	obs.BatchFinished(stories.BatchResult{Account: "natgeo", Outcome: stories.TooManyFailures, Saved: 2})

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Failed to load checkpoint: %v", err)
	}
	if !loaded.IsCompleted("natgeo") || loaded.IsCompleted("nasa") {
		t.Errorf("Unexpected completion state: %+v", loaded.Completed)
	}
}

func TestNewManagerUsesDataHome(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME is only consulted on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	mgr, err := NewManager([]string{"natgeo"})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	want := filepath.Join(dir, "igstories", "checkpoints")
	if filepath.Dir(mgr.Path()) != want {
		t.Errorf("Expected checkpoint under %s, got %s", want, mgr.Path())
	}
}
