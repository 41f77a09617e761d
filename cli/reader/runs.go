package reader

import (
	"context"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/agharvest/lode"
	"github.com/pithecene-io/agharvest/types"
)

// Reader queries a run archive.
type Reader struct {
	ds lodelib.Dataset
}

// New wraps an opened archive dataset.
func New(ds lodelib.Dataset) *Reader {
	return &Reader{ds: ds}
}

// Runs lists archived runs newest first with their outcome counts.
func (r *Reader) Runs(ctx context.Context, filter lode.RunFilter) (*RunsView, error) {
	records, err := lode.ListRuns(ctx, r.ds, filter)
	if err != nil {
		return nil, err
	}
	view := &RunsView{Runs: make([]RunItem, 0, len(records))}
	for _, rec := range records {
		view.Runs = append(view.Runs, RunItem{
			RunID:      rec.RunID,
			Command:    rec.Command,
			Source:     rec.Source,
			Status:     rec.Status,
			Step:       rec.Step,
			Message:    rec.Message,
			StartedAt:  rec.StartedAt,
			DurationMs: rec.Duration().Milliseconds(),
			Outputs:    rec.Outputs,
		})
	}
	view.Stats = Summarize(view.Runs)
	return view, nil
}

// Metrics returns the newest metrics record, optionally for one run.
func (r *Reader) Metrics(ctx context.Context, runID, source string) (*MetricsView, error) {
	record, err := lode.QueryLatestMetrics(ctx, r.ds, runID, source)
	if err != nil {
		return nil, err
	}
	return ParseMetricsRecord(record)
}

// Summarize counts runs by status and failed step.
func Summarize(runs []RunItem) RunStats {
	s := RunStats{ByStatus: map[string]int{}}
	for _, run := range runs {
		s.Total++
		s.ByStatus[string(run.Status)]++
		if run.Status == types.OutcomeSuccess {
			s.Succeeded++
			continue
		}
		s.Failed++
		if run.Step != "" {
			if s.ByStep == nil {
				s.ByStep = map[string]int{}
			}
			s.ByStep[run.Step]++
		}
	}
	return s
}
