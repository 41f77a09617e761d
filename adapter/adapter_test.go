package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pithecene-io/agharvest/types"
)

func TestRetry(t *testing.T) {
	transient := errors.New("transient")
	tests := []struct {
		name      string
		retries   int
		failures  int
		permanent bool
		wantCalls int
		wantErr   bool
	}{
		{"first try", 3, 0, false, 1, false},
		{"recovers", 3, 2, false, 3, false},
		{"exhausted", 2, 10, false, 3, true},
		{"permanent stops", 3, 10, true, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), tt.retries, time.Millisecond, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return fmt.Errorf("%w: bad request", ErrPermanent)
					}
					return transient
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetry_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := Retry(ctx, 3, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNewRunCompletedEvent(t *testing.T) {
	meta := &types.RunMeta{RunID: "run-1", Command: "giovanni", Source: "giovanni"}
	ended := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	ev := NewRunCompletedEvent(meta, types.RunOutcome{Status: types.OutcomeStepFailure, Step: "select_variable"}, ended, 1500*time.Millisecond)

	if ev.EventType != EventTypeRunCompleted || ev.Outcome != "step_failure" || ev.FailedStep != "select_variable" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Day != "2026-02-07" || ev.Timestamp != "2026-02-07T12:00:00Z" || ev.DurationMs != 1500 {
		t.Errorf("event times = %+v", ev)
	}
}
