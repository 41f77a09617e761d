package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("giovanni", "chrome", "fs", "run-001")

	c.IncRunStarted()
	c.IncRunFailed()
	c.IncStepStarted()
	c.IncStepStarted()
	c.IncStepCompleted()
	c.IncStepFailed("select_variable")
	c.IncWait(false)
	c.IncWait(true)
	c.IncAlert(true)
	c.IncAlert(false)
	c.IncArtifactLocated()
	c.IncArtifactDeleted()
	c.AddDownload(1024, false)
	c.AddDownload(0, true)
	c.AddFileWritten(10)
	c.AddFileWritten(5)
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name      string
		got, want int64
	}{
		{"RunsStarted", s.RunsStarted, 1},
		{"RunsFailed", s.RunsFailed, 1},
		{"StepsStarted", s.StepsStarted, 2},
		{"StepsCompleted", s.StepsCompleted, 1},
		{"StepsFailed", s.StepsFailed, 1},
		{"FailedByStep[select_variable]", s.FailedByStep["select_variable"], 1},
		{"Waits", s.Waits, 2},
		{"WaitTimeouts", s.WaitTimeouts, 1},
		{"AlertsAccepted", s.AlertsAccepted, 1},
		{"AlertsUnexpected", s.AlertsUnexpected, 1},
		{"ArtifactsLocated", s.ArtifactsLocated, 1},
		{"ArtifactsDeleted", s.ArtifactsDeleted, 1},
		{"Downloads", s.Downloads, 2},
		{"DownloadFailures", s.DownloadFailures, 1},
		{"BytesDownloaded", s.BytesDownloaded, 1024},
		{"FilesWritten", s.FilesWritten, 2},
		{"RowsWritten", s.RowsWritten, 15},
		{"LodeWriteSuccess", s.LodeWriteSuccess, 1},
		{"LodeWriteFailure", s.LodeWriteFailure, 1},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %d, want %d", ch.name, ch.got, ch.want)
		}
	}

	if s.Command != "giovanni" || s.Browser != "chrome" || s.StorageBackend != "fs" || s.RunID != "run-001" {
		t.Errorf("dimensions = %q/%q/%q/%q", s.Command, s.Browser, s.StorageBackend, s.RunID)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.IncRunStarted()
	c.IncStepFailed("x")
	c.IncWait(true)
	c.AddDownload(1, false)

	s := c.Snapshot()
	if s.RunsStarted != 0 || s.StepsFailed != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("giovanni", "", "", "run-1")
	c.IncStepFailed("a")

	s := c.Snapshot()
	s.FailedByStep["a"] = 99

	c.IncStepFailed("a")
	if got := c.Snapshot().FailedByStep["a"]; got != 2 {
		t.Errorf("FailedByStep[a] = %d, want 2 (snapshot mutation leaked)", got)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("giovanni", "", "", "run-1")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncWait(false)
			c.AddFileWritten(1)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Waits != 50 || s.RowsWritten != 50 {
		t.Errorf("Waits=%d RowsWritten=%d, want 50/50", s.Waits, s.RowsWritten)
	}
}
