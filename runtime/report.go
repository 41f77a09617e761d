package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/types"
)

// RunReport is the JSON document written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Command    string              `json:"command"`
	Source     string              `json:"source"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	FailedStep string              `json:"failed_step,omitempty"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`
	Outputs    []string            `json:"outputs"`
	Archived   []string            `json:"archived,omitempty"`
	// ArtifactURL has its query string removed.
	ArtifactURL string               `json:"artifact_url,omitempty"`
	ProxyUsed   *types.ProxyEndpoint `json:"proxy_used,omitempty"`
	Metrics     *metrics.Snapshot    `json:"metrics"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// BuildRunReport composes the report of a finished run. proxy is
// redacted before it is stored.
func BuildRunReport(res *RunResult, proxy *types.ProxyEndpoint) *RunReport {
	snap := res.Metrics
	report := &RunReport{
		RunID:       res.RunMeta.RunID,
		Command:     res.RunMeta.Command,
		Source:      res.RunMeta.Source,
		Outcome:     res.Outcome.Status,
		Message:     res.Outcome.Message,
		FailedStep:  res.Outcome.Step,
		ExitCode:    ExitCode(res.Outcome),
		DurationMs:  res.Duration.Milliseconds(),
		Outputs:     res.Outputs,
		Archived:    res.Archived,
		ArtifactURL: redactURL(res.ArtifactURL),
		Metrics:     &snap,
	}
	if report.Outputs == nil {
		report.Outputs = []string{}
	}
	if proxy != nil {
		redacted := proxy.Redact()
		report.ProxyUsed = &redacted
	}
	if res.ArchiveErr != nil {
		report.Warnings = append(report.Warnings, "archive: "+res.ArchiveErr.Error())
	}
	if res.NotifyErr != nil {
		report.Warnings = append(report.Warnings, "notify: "+res.NotifyErr.Error())
	}
	return report
}

// WriteRunReport writes report as indented JSON to path, or to stderr
// when path is "-".
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		return writeRunReportTo(report, os.Stderr)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := writeRunReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}

func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
