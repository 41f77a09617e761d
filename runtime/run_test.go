package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/agharvest/adapter"
	"github.com/pithecene-io/agharvest/lode"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/types"
)

type stubAdapter struct {
	mu     sync.Mutex
	events []*adapter.RunCompletedEvent
	err    error
	closed bool
}

func (s *stubAdapter) Publish(_ context.Context, e *adapter.RunCompletedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *stubAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func TestExecute_Success(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(out, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	meta := types.NewRunMeta("giovanni", "giovanni")
	collector := metrics.NewCollector("giovanni", "sim", "fs", meta.RunID)
	rec := lode.NewStubRecorder()
	ad := &stubAdapter{}
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	res, err := Execute(t.Context(), RunConfig{
		RunMeta:     meta,
		Collector:   collector,
		Recorder:    rec,
		StoragePath: "datasets/agharvest/partitions/x",
		Adapter:     ad,
		Day:         "2026-02-03",
		now:         fixedClock(start, 90*time.Second),
	}, JobFunc(func(_ context.Context, rc *RunContext) (*JobResult, error) {
		if rc.Meta != meta || rc.Logger == nil {
			t.Error("run context not populated")
		}
		return &JobResult{
			Outputs:     []string{out},
			ArtifactURL: "https://giovanni.example.com/session/x.csv?session=secret",
			Params:      map[string]string{"plot_type": "ArAvTs"},
		}, nil
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Outcome.Succeeded() || res.Duration != 90*time.Second {
		t.Fatalf("result = %+v", res)
	}
	if res.ArchiveErr != nil || res.NotifyErr != nil {
		t.Fatalf("archive=%v notify=%v", res.ArchiveErr, res.NotifyErr)
	}
	if diff := cmp.Diff([]string{"out.csv"}, res.Archived); diff != "" {
		t.Errorf("archived mismatch (-want +got):\n%s", diff)
	}
	if string(rec.Files["out.csv"]) != "a,b\n1,2\n" {
		t.Errorf("archived file = %q", rec.Files["out.csv"])
	}

	if len(rec.Runs) != 1 {
		t.Fatalf("runs = %d", len(rec.Runs))
	}
	run := rec.Runs[0]
	if run.Status != types.OutcomeSuccess || run.ArtifactURL != "https://giovanni.example.com/session/x.csv" {
		t.Errorf("run record = %+v", run)
	}
	if run.Params["plot_type"] != "ArAvTs" || run.Day != "2026-02-03" {
		t.Errorf("run params/day = %v %q", run.Params, run.Day)
	}
	if len(rec.Metrics) != 1 || rec.Metrics[0].RunsCompleted != 1 {
		t.Errorf("metrics = %+v", rec.Metrics)
	}
	if !rec.Closed {
		t.Error("recorder not closed")
	}

	if len(ad.events) != 1 || !ad.closed {
		t.Fatalf("events = %d closed = %v", len(ad.events), ad.closed)
	}
	ev := ad.events[0]
	if ev.Outcome != "success" || ev.ArtifactHost != "giovanni.example.com" || ev.Day != "2026-02-03" {
		t.Errorf("event = %+v", ev)
	}
	if ev.StoragePath != "datasets/agharvest/partitions/x" || ev.DurationMs != 90000 {
		t.Errorf("event = %+v", ev)
	}
}

func TestExecute_StepFailure(t *testing.T) {
	meta := types.NewRunMeta("giovanni", "giovanni")
	collector := metrics.NewCollector("giovanni", "sim", "", meta.RunID)
	rec := lode.NewStubRecorder()

	res, err := Execute(t.Context(), RunConfig{RunMeta: meta, Collector: collector, Recorder: rec},
		JobFunc(func(context.Context, *RunContext) (*JobResult, error) {
			return nil, &portal.StepError{Step: portal.StepLogin, Err: portal.ErrSubmitUnavailable}
		}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome.Status != types.OutcomeStepFailure || res.Outcome.Step != "login" {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if !errors.Is(res.Err, portal.ErrSubmitUnavailable) {
		t.Errorf("Err = %v", res.Err)
	}
	if res.Metrics.RunsFailed != 1 {
		t.Errorf("RunsFailed = %d", res.Metrics.RunsFailed)
	}
	if len(rec.Runs) != 1 || rec.Runs[0].Step != "login" {
		t.Errorf("run record = %+v", rec.Runs)
	}
}

func TestExecute_BestEffortFailures(t *testing.T) {
	meta := types.NewRunMeta("quickstats", "quickstats")
	rec := lode.NewStubRecorder()
	rec.Err = errors.New("store down")
	ad := &stubAdapter{err: errors.New("hook down")}

	res, err := Execute(t.Context(), RunConfig{RunMeta: meta, Recorder: rec, Adapter: ad},
		JobFunc(func(context.Context, *RunContext) (*JobResult, error) {
			return &JobResult{}, nil
		}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Outcome.Succeeded() {
		t.Errorf("best-effort failures changed the outcome: %+v", res.Outcome)
	}
	if res.ArchiveErr == nil || res.NotifyErr == nil {
		t.Errorf("archive=%v notify=%v", res.ArchiveErr, res.NotifyErr)
	}
}

func TestExecute_CanceledContextStillArchives(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	rec := lode.NewStubRecorder()
	meta := types.NewRunMeta("giovanni", "giovanni")

	res, err := Execute(ctx, RunConfig{RunMeta: meta, Recorder: rec},
		JobFunc(func(ctx context.Context, _ *RunContext) (*JobResult, error) {
			cancel()
			return nil, &portal.StepError{Step: portal.StepTrigger, Err: ctx.Err()}
		}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome.Status != types.OutcomeStepFailure || len(rec.Runs) != 1 {
		t.Errorf("outcome = %+v runs = %d", res.Outcome, len(rec.Runs))
	}
}

func TestExecute_InvalidMeta(t *testing.T) {
	_, err := Execute(t.Context(), RunConfig{RunMeta: &types.RunMeta{}}, JobFunc(func(context.Context, *RunContext) (*JobResult, error) {
		t.Fatal("job must not run")
		return nil, nil
	}))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"":                                 "",
		"https://u:p@host/a.csv?session=x": "https://host/a.csv",
		"https://host/a.csv":               "https://host/a.csv",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
