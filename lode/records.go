package lode

import (
	"time"

	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/types"
)

// Record kinds, also the last partition key.
const (
	RecordKindRun     = "run"
	RecordKindMetrics = "metrics"
)

// RunRecord summarises one finished run.
type RunRecord struct {
	RunID     string
	Command   string
	Source    string
	Day       string
	Status    types.OutcomeStatus
	Message   string
	Step      string
	StartedAt time.Time
	EndedAt   time.Time
	// ArtifactURL is the downloaded portal artifact, if any.
	ArtifactURL string
	// Outputs are the local files the run wrote.
	Outputs []string
	// Params records the user-facing selection (plot type, dates, ...).
	Params map[string]string
}

// Duration is the run's wall time.
func (r RunRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

func toRunRecordMap(r RunRecord, cfg Config) map[string]any {
	outputs := make([]any, len(r.Outputs))
	for i, o := range r.Outputs {
		outputs[i] = o
	}
	params := make(map[string]any, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	m := map[string]any{
		"record_kind":      RecordKindRun,
		"contract_version": types.ContractVersion,
		"run_id":           cfg.RunID,
		"command":          r.Command,
		"status":           string(r.Status),
		"message":          r.Message,
		"started_at":       r.StartedAt.UTC().Format(time.RFC3339Nano),
		"ended_at":         r.EndedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms":      r.Duration().Milliseconds(),
		"outputs":          outputs,
		"params":           params,
		"source":           cfg.Source,
		"category":         cfg.Category,
		"day":              cfg.Day,
	}
	if r.Step != "" {
		m["step"] = r.Step
	}
	if r.ArtifactURL != "" {
		m["artifact_url"] = r.ArtifactURL
	}
	return m
}

// ParseRunRecord reads a stored run record. Missing fields stay zero.
func ParseRunRecord(m map[string]any) RunRecord {
	r := RunRecord{
		RunID:       toString(m["run_id"]),
		Command:     toString(m["command"]),
		Source:      toString(m["source"]),
		Day:         toString(m["day"]),
		Status:      types.OutcomeStatus(toString(m["status"])),
		Message:     toString(m["message"]),
		Step:        toString(m["step"]),
		ArtifactURL: toString(m["artifact_url"]),
		StartedAt:   toTime(m["started_at"]),
		EndedAt:     toTime(m["ended_at"]),
	}
	if outs, ok := m["outputs"].([]any); ok {
		for _, o := range outs {
			r.Outputs = append(r.Outputs, toString(o))
		}
	}
	if params, ok := m["params"].(map[string]any); ok {
		r.Params = make(map[string]string, len(params))
		for k, v := range params {
			r.Params[k] = toString(v)
		}
	}
	return r
}

func toMetricsRecordMap(s metrics.Snapshot, cfg Config, completedAt time.Time) map[string]any {
	failed := make(map[string]int64, len(s.FailedByStep))
	for k, v := range s.FailedByStep {
		failed[k] = v
	}
	return map[string]any{
		"record_kind":        RecordKindMetrics,
		"contract_version":   types.ContractVersion,
		"ts":                 completedAt.UTC().Format(time.RFC3339Nano),
		"runs_started":       s.RunsStarted,
		"runs_completed":     s.RunsCompleted,
		"runs_failed":        s.RunsFailed,
		"steps_started":      s.StepsStarted,
		"steps_completed":    s.StepsCompleted,
		"steps_failed":       s.StepsFailed,
		"failed_by_step":     failed,
		"waits":              s.Waits,
		"wait_timeouts":      s.WaitTimeouts,
		"alerts_accepted":    s.AlertsAccepted,
		"alerts_unexpected":  s.AlertsUnexpected,
		"artifacts_located":  s.ArtifactsLocated,
		"artifacts_deleted":  s.ArtifactsDeleted,
		"downloads":          s.Downloads,
		"download_failures":  s.DownloadFailures,
		"bytes_downloaded":   s.BytesDownloaded,
		"files_written":      s.FilesWritten,
		"rows_written":       s.RowsWritten,
		"lode_write_success": s.LodeWriteSuccess,
		"lode_write_failure": s.LodeWriteFailure,
		"command":            s.Command,
		"browser":            s.Browser,
		"storage_backend":    s.StorageBackend,
		"run_id":             cfg.RunID,
		"source":             cfg.Source,
		"category":           cfg.Category,
		"day":                cfg.Day,
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toTime(v any) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, toString(v))
	return t
}
