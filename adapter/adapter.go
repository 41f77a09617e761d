// Package adapter notifies downstream systems when a run finishes.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/agharvest/types"
)

// EventTypeRunCompleted is the only event type published.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the notification payload.
type RunCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"`
	RunID           string `json:"run_id"`
	Command         string `json:"command"`
	Source          string `json:"source"`
	Day             string `json:"day"`
	Outcome         string `json:"outcome"`
	Message         string `json:"message,omitempty"`
	FailedStep      string `json:"failed_step,omitempty"`
	// ArtifactHost is the host serving the downloaded artifact. The full
	// URL carries a session token and is not published.
	ArtifactHost string   `json:"artifact_host,omitempty"`
	Outputs      []string `json:"outputs,omitempty"`
	// StoragePath is the archive location of the run, when archived.
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewRunCompletedEvent fills the fixed fields of an event.
func NewRunCompletedEvent(meta *types.RunMeta, outcome types.RunOutcome, ended time.Time, duration time.Duration) *RunCompletedEvent {
	return &RunCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeRunCompleted,
		RunID:           meta.RunID,
		Command:         meta.Command,
		Source:          meta.Source,
		Day:             ended.UTC().Format("2006-01-02"),
		Outcome:         string(outcome.Status),
		Message:         outcome.Message,
		FailedStep:      outcome.Step,
		Timestamp:       ended.UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
	}
}

// Adapter publishes run completion events. One adapter serves one run.
type Adapter interface {
	Publish(ctx context.Context, event *RunCompletedEvent) error
	Close() error
}

// DefaultBackoff is the delay before the first retry. It doubles on each
// further attempt.
const DefaultBackoff = 500 * time.Millisecond

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Retry calls attempt up to 1+retries times with exponential backoff. It
// stops early on success, on a failure wrapping ErrPermanent, or when ctx
// ends.
func Retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if i > 0 {
			t := time.NewTimer(backoff << (i - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("canceled during backoff: %w", ctx.Err())
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled: %w", err)
		}
		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
