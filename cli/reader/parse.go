package reader

import (
	"errors"

	"github.com/pithecene-io/agharvest/metrics"
)

// ParseMetricsRecord converts an archived metrics record. Numbers may be
// int64 (direct writes) or float64 (JSON round trips).
func ParseMetricsRecord(record map[string]any) (*MetricsView, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}
	v := &MetricsView{
		Ts:     toString(record["ts"]),
		Source: toString(record["source"]),
		Day:    toString(record["day"]),
		Snapshot: metrics.Snapshot{
			RunsStarted:      toInt64(record["runs_started"]),
			RunsCompleted:    toInt64(record["runs_completed"]),
			RunsFailed:       toInt64(record["runs_failed"]),
			StepsStarted:     toInt64(record["steps_started"]),
			StepsCompleted:   toInt64(record["steps_completed"]),
			StepsFailed:      toInt64(record["steps_failed"]),
			FailedByStep:     toCounts(record["failed_by_step"]),
			Waits:            toInt64(record["waits"]),
			WaitTimeouts:     toInt64(record["wait_timeouts"]),
			AlertsAccepted:   toInt64(record["alerts_accepted"]),
			AlertsUnexpected: toInt64(record["alerts_unexpected"]),
			ArtifactsLocated: toInt64(record["artifacts_located"]),
			ArtifactsDeleted: toInt64(record["artifacts_deleted"]),
			Downloads:        toInt64(record["downloads"]),
			DownloadFailures: toInt64(record["download_failures"]),
			BytesDownloaded:  toInt64(record["bytes_downloaded"]),
			FilesWritten:     toInt64(record["files_written"]),
			RowsWritten:      toInt64(record["rows_written"]),
			LodeWriteSuccess: toInt64(record["lode_write_success"]),
			LodeWriteFailure: toInt64(record["lode_write_failure"]),
			Command:          toString(record["command"]),
			Browser:          toString(record["browser"]),
			StorageBackend:   toString(record["storage_backend"]),
			RunID:            toString(record["run_id"]),
		},
	}

	// The write path always sets these.
	if v.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if v.RunID == "" {
		return nil, errors.New("metrics record missing required field: run_id")
	}
	if v.Command == "" {
		return nil, errors.New("metrics record missing required field: command")
	}
	return v, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toCounts handles map[string]int64 (direct) and map[string]any (JSON).
func toCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		out := make(map[string]int64, len(m))
		for k, val := range m {
			out[k] = toInt64(val)
		}
		return out
	default:
		return nil
	}
}
