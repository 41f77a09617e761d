// Package metrics collects per-run counters for the portal workflow, the
// artifact download and the output writers.
//
// The Collector is a leaf package with no internal dependencies. A nil
// *Collector is valid and records nothing.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed"`

	StepsStarted   int64            `json:"steps_started"`
	StepsCompleted int64            `json:"steps_completed"`
	StepsFailed    int64            `json:"steps_failed"`
	FailedByStep   map[string]int64 `json:"failed_by_step,omitempty"`

	Waits        int64 `json:"waits"`
	WaitTimeouts int64 `json:"wait_timeouts"`

	AlertsAccepted   int64 `json:"alerts_accepted"`
	AlertsUnexpected int64 `json:"alerts_unexpected"`

	ArtifactsLocated int64 `json:"artifacts_located"`
	ArtifactsDeleted int64 `json:"artifacts_deleted"`

	Downloads        int64 `json:"downloads"`
	DownloadFailures int64 `json:"download_failures"`
	BytesDownloaded  int64 `json:"bytes_downloaded"`

	FilesWritten int64 `json:"files_written"`
	RowsWritten  int64 `json:"rows_written"`

	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	Command        string `json:"command"`
	Browser        string `json:"browser,omitempty"`
	StorageBackend string `json:"storage_backend,omitempty"`
	RunID          string `json:"run_id"`
}

// Collector accumulates counters during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(command, browser, storageBackend, runID string) *Collector {
	return &Collector{snap: Snapshot{
		FailedByStep:   make(map[string]int64),
		Command:        command,
		Browser:        browser,
		StorageBackend: storageBackend,
		RunID:          runID,
	}}
}

func (c *Collector) update(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.snap)
	c.mu.Unlock()
}

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() { c.update(func(s *Snapshot) { s.RunsStarted++ }) }

// IncRunCompleted records a successful run.
func (c *Collector) IncRunCompleted() { c.update(func(s *Snapshot) { s.RunsCompleted++ }) }

// IncRunFailed records a failed run.
func (c *Collector) IncRunFailed() { c.update(func(s *Snapshot) { s.RunsFailed++ }) }

// --- Workflow steps ---

// IncStepStarted records a workflow step start.
func (c *Collector) IncStepStarted() { c.update(func(s *Snapshot) { s.StepsStarted++ }) }

// IncStepCompleted records a workflow step success.
func (c *Collector) IncStepCompleted() { c.update(func(s *Snapshot) { s.StepsCompleted++ }) }

// IncStepFailed records a workflow step failure, keyed by step name.
func (c *Collector) IncStepFailed(step string) {
	c.update(func(s *Snapshot) {
		s.StepsFailed++
		if s.FailedByStep == nil {
			s.FailedByStep = make(map[string]int64)
		}
		s.FailedByStep[step]++
	})
}

// IncWait records a completed or timed-out wait.
func (c *Collector) IncWait(timedOut bool) {
	c.update(func(s *Snapshot) {
		s.Waits++
		if timedOut {
			s.WaitTimeouts++
		}
	})
}

// IncAlert records a dismissed alert; unexpected alerts are counted separately.
func (c *Collector) IncAlert(expected bool) {
	c.update(func(s *Snapshot) {
		if expected {
			s.AlertsAccepted++
		} else {
			s.AlertsUnexpected++
		}
	})
}

// --- Artifacts ---

// IncArtifactLocated records a captured artifact URL.
func (c *Collector) IncArtifactLocated() { c.update(func(s *Snapshot) { s.ArtifactsLocated++ }) }

// IncArtifactDeleted records a server-side plot deletion.
func (c *Collector) IncArtifactDeleted() { c.update(func(s *Snapshot) { s.ArtifactsDeleted++ }) }

// AddDownload records one download attempt and the bytes it produced.
func (c *Collector) AddDownload(bytes int64, failed bool) {
	c.update(func(s *Snapshot) {
		s.Downloads++
		if failed {
			s.DownloadFailures++
			return
		}
		s.BytesDownloaded += bytes
	})
}

// AddFileWritten records one output file and its data row count.
func (c *Collector) AddFileWritten(rows int64) {
	c.update(func(s *Snapshot) {
		s.FilesWritten++
		s.RowsWritten += rows
	})
}

// --- Lode / Storage ---
// Counted per call, not per record.

// IncLodeWriteSuccess records a successful archive write.
func (c *Collector) IncLodeWriteSuccess() { c.update(func(s *Snapshot) { s.LodeWriteSuccess++ }) }

// IncLodeWriteFailure records a failed archive write.
func (c *Collector) IncLodeWriteFailure() { c.update(func(s *Snapshot) { s.LodeWriteFailure++ }) }

// Snapshot returns an independent copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.snap
	out.FailedByStep = make(map[string]int64, len(c.snap.FailedByStep))
	for k, v := range c.snap.FailedByStep {
		out.FailedByStep[k] = v
	}
	return out
}
