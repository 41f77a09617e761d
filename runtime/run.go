// Package runtime runs one command end to end: the command's job, then
// the run record, metrics and output files in the archive, then the
// completion notification.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pithecene-io/agharvest/adapter"
	"github.com/pithecene-io/agharvest/lode"
	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/tabular"
	"github.com/pithecene-io/agharvest/types"
)

// DefaultNotifyTimeout bounds the completion notification, retries
// included.
const DefaultNotifyTimeout = 30 * time.Second

// Job is the command-specific work of a run.
type Job interface {
	Run(ctx context.Context, rc *RunContext) (*JobResult, error)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context, rc *RunContext) (*JobResult, error)

// Run implements Job.
func (f JobFunc) Run(ctx context.Context, rc *RunContext) (*JobResult, error) { return f(ctx, rc) }

// RunContext is handed to a job.
type RunContext struct {
	Meta      *types.RunMeta
	Logger    *log.Logger
	Collector *metrics.Collector
}

// JobResult is what a job produced. A failing job may still return the
// outputs it wrote before the failure.
type JobResult struct {
	// Outputs are local files written by the job.
	Outputs []string
	// ArtifactURL is the downloaded portal artifact, if any.
	ArtifactURL string
	// Params records the user-facing selection.
	Params map[string]string
	// Table is the job's tabular result, for printing.
	Table *tabular.Table
}

// RunConfig configures a single run.
type RunConfig struct {
	RunMeta *types.RunMeta
	// Logger defaults to a nop logger.
	Logger *log.Logger
	// Collector may be nil.
	Collector *metrics.Collector
	// Recorder archives the run when set.
	Recorder lode.Recorder
	// StoragePath is the archive location reported in notifications.
	StoragePath string
	// Adapter publishes the completion event when set.
	Adapter adapter.Adapter
	// NotifyTimeout defaults to DefaultNotifyTimeout.
	NotifyTimeout time.Duration
	// Day is the archive partition day, recorded in the run record.
	Day string

	now func() time.Time
}

// RunResult is the outcome of a run.
type RunResult struct {
	RunMeta   *types.RunMeta
	Outcome   types.RunOutcome
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Outputs   []string
	Table     *tabular.Table
	// Archived are the output files stored in the archive, by base name.
	Archived    []string
	ArtifactURL string
	Metrics     metrics.Snapshot
	// ArchiveErr and NotifyErr record best-effort failures after the job.
	ArchiveErr error
	NotifyErr  error
}

// Execute runs job and records its result. Archive and notification
// failures are logged and returned on the result; they never change the
// outcome.
func Execute(ctx context.Context, cfg RunConfig, job Job) (*RunResult, error) {
	if err := cfg.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	now := cfg.now
	if now == nil {
		now = time.Now
	}

	res := &RunResult{RunMeta: cfg.RunMeta, StartedAt: now()}
	cfg.Collector.IncRunStarted()
	logger.Info("run started", nil)

	jr, err := job.Run(ctx, &RunContext{Meta: cfg.RunMeta, Logger: logger, Collector: cfg.Collector})
	if jr == nil {
		jr = &JobResult{}
	}
	res.Err = err
	res.Outcome = DetermineOutcome(err)
	res.Outputs = jr.Outputs
	res.ArtifactURL = jr.ArtifactURL
	res.Table = jr.Table
	res.EndedAt = now()
	res.Duration = res.EndedAt.Sub(res.StartedAt)

	if res.Outcome.Succeeded() {
		cfg.Collector.IncRunCompleted()
		logger.Info("run completed", map[string]any{"duration_ms": res.Duration.Milliseconds()})
	} else {
		cfg.Collector.IncRunFailed()
		logger.Error("run failed", map[string]any{
			"outcome": string(res.Outcome.Status),
			"step":    res.Outcome.Step,
			"error":   res.Outcome.Message,
		})
	}

	// Records are written even when ctx is canceled.
	bg := context.WithoutCancel(ctx)
	if cfg.Recorder != nil {
		res.Archived, res.ArchiveErr = archive(bg, cfg, res, jr.Params)
		if res.ArchiveErr != nil {
			logger.Warn("archive failed", map[string]any{"error": res.ArchiveErr.Error()})
		}
	}
	res.Metrics = cfg.Collector.Snapshot()

	if cfg.Adapter != nil {
		res.NotifyErr = notify(bg, cfg, res)
		if res.NotifyErr != nil {
			logger.Warn("notification failed", map[string]any{"error": res.NotifyErr.Error()})
		}
	}
	return res, nil
}

func archive(ctx context.Context, cfg RunConfig, res *RunResult, params map[string]string) ([]string, error) {
	stored, filesErr := lode.StoreFiles(ctx, cfg.Recorder, res.Outputs)
	runErr := cfg.Recorder.WriteRun(ctx, lode.RunRecord{
		RunID:       cfg.RunMeta.RunID,
		Command:     cfg.RunMeta.Command,
		Source:      cfg.RunMeta.Source,
		Day:         cfg.Day,
		Status:      res.Outcome.Status,
		Message:     res.Outcome.Message,
		Step:        res.Outcome.Step,
		StartedAt:   res.StartedAt,
		EndedAt:     res.EndedAt,
		ArtifactURL: redactURL(res.ArtifactURL),
		Outputs:     res.Outputs,
		Params:      params,
	})
	// Metrics go last so the snapshot counts the writes above.
	metricsErr := cfg.Recorder.WriteMetrics(ctx, cfg.Collector.Snapshot(), res.EndedAt)
	return stored, errors.Join(filesErr, runErr, metricsErr, cfg.Recorder.Close())
}

func notify(ctx context.Context, cfg RunConfig, res *RunResult) error {
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	event := adapter.NewRunCompletedEvent(cfg.RunMeta, res.Outcome, res.EndedAt, res.Duration)
	if cfg.Day != "" {
		event.Day = cfg.Day
	}
	event.Outputs = res.Outputs
	event.StoragePath = cfg.StoragePath
	if u, err := url.Parse(res.ArtifactURL); err == nil {
		event.ArtifactHost = u.Host
	}
	err := cfg.Adapter.Publish(ctx, event)
	return errors.Join(err, cfg.Adapter.Close())
}

// redactURL drops the query string, which carries the portal session.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return ""
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
