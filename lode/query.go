package lode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoMetricsFound is returned when no metrics record matches.
var ErrNoMetricsFound = errors.New("no metrics records found")

// OpenFS opens an archived dataset on the local filesystem for reading.
func OpenFS(dataset, root string) (lode.Dataset, error) {
	return newDataset(dataset, lode.NewFSFactory(root))
}

// OpenS3 opens an archived dataset in S3 for reading.
func OpenS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := s3Factory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return newDataset(dataset, factory)
}

// Open opens dataset over an arbitrary store factory.
func Open(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return newDataset(dataset, factory)
}

// RunFilter narrows ListRuns. Empty fields match everything.
type RunFilter struct {
	Source  string
	Command string
	Status  string
	Day     string
	// Limit caps the result count when positive.
	Limit int
}

func (f RunFilter) match(r RunRecord) bool {
	return (f.Source == "" || r.Source == f.Source) &&
		(f.Command == "" || r.Command == f.Command) &&
		(f.Status == "" || string(r.Status) == f.Status) &&
		(f.Day == "" || r.Day == f.Day)
}

// ListRuns returns archived run records, newest first.
func ListRuns(ctx context.Context, ds lode.Dataset, filter RunFilter) ([]RunRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "snapshots")
	}
	var runs []RunRecord
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotHasPartition(snap, "record_kind", RecordKindRun) ||
			!snapshotHasPartition(snap, "source", filter.Source) ||
			!snapshotHasPartition(snap, "day", filter.Day) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || m["record_kind"] != RecordKindRun {
				continue
			}
			if r := ParseRunRecord(m); filter.match(r) {
				runs = append(runs, r)
			}
		}
	}
	slices.SortStableFunc(runs, func(a, b RunRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

// QueryLatestMetrics returns the newest metrics record, optionally for one
// run and source.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID, source string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "snapshots")
	}
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotHasPartition(snap, "record_kind", RecordKindMetrics) ||
			!snapshotHasPartition(snap, "run_id", runID) ||
			!snapshotHasPartition(snap, "source", source) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}
		// Manifest paths are a coarse filter; record fields decide.
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || m["record_kind"] != RecordKindMetrics {
				continue
			}
			if runID != "" && toString(m["run_id"]) != runID {
				continue
			}
			if source != "" && toString(m["source"]) != source {
				continue
			}
			return m, nil
		}
	}
	return nil, ErrNoMetricsFound
}

// snapshotHasPartition reports whether any manifest file sits under
// key=value. An empty value matches everything.
func snapshotHasPartition(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if hasPathSegment(f.Path, key+"="+value) {
			return true
		}
	}
	return false
}

// hasPathSegment matches whole "/"-delimited segments so run-1 does not
// match run-10.
func hasPathSegment(path, segment string) bool {
	return slices.Contains(strings.Split(path, "/"), segment)
}
