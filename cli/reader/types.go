// Package reader is the read side of the CLI: output metadata for
// inspect, archived run records and metrics for runs.
//
// Views carry json and yaml tags so every renderer and the TUI share one
// payload.
package reader

import (
	"time"

	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/types"
)

// Metadata sources.
const (
	SourceParquet = "parquet"
	SourceSidecar = "sidecar"
)

// Entry is one key/value pair shown by inspect.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// MetadataView is the metadata attached to one output file.
type MetadataView struct {
	File   string `json:"file" yaml:"file"`
	Source string `json:"source" yaml:"source"`
	// Columns and Rows are only known for Parquet files.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    int      `json:"rows,omitempty" yaml:"rows,omitempty"`
	Fields  []Entry  `json:"fields" yaml:"fields"`
	// RenameOld and RenameNew record a renamed output column.
	RenameOld string `json:"rename_old,omitempty" yaml:"rename_old,omitempty"`
	RenameNew string `json:"rename_new,omitempty" yaml:"rename_new,omitempty"`
	// Other holds key/value metadata outside the known keys.
	Other []Entry `json:"other,omitempty" yaml:"other,omitempty"`
}

// RunItem is one archived run as listed by the runs command.
type RunItem struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Command    string              `json:"command" yaml:"command"`
	Source     string              `json:"source" yaml:"source"`
	Status     types.OutcomeStatus `json:"status" yaml:"status"`
	Step       string              `json:"step,omitempty" yaml:"step,omitempty"`
	Message    string              `json:"message,omitempty" yaml:"message,omitempty"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	DurationMs int64               `json:"duration_ms" yaml:"duration_ms"`
	Outputs    []string            `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// RunStats counts runs by outcome.
type RunStats struct {
	Total     int            `json:"total" yaml:"total"`
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    int            `json:"failed" yaml:"failed"`
	ByStatus  map[string]int `json:"by_status" yaml:"by_status"`
	ByStep    map[string]int `json:"by_step,omitempty" yaml:"by_step,omitempty"`
}

// RunsView is the payload of the runs command.
type RunsView struct {
	Stats RunStats  `json:"stats" yaml:"stats"`
	Runs  []RunItem `json:"runs" yaml:"runs"`
}

// MetricsView is an archived metrics record.
type MetricsView struct {
	Ts     string `json:"ts" yaml:"ts"`
	Source string `json:"source" yaml:"source"`
	Day    string `json:"day" yaml:"day"`

	metrics.Snapshot `yaml:",inline"`
}
