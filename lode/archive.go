package lode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/agharvest/metrics"
)

// Recorder persists the results of one run.
type Recorder interface {
	WriteRun(ctx context.Context, rec RunRecord) error
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error
	// PutFile stores data under the run's files/ prefix. The filename
	// must not contain path separators or "..".
	PutFile(ctx context.Context, filename string, data []byte) error
	Close() error
}

// Archive is the Lode-backed Recorder.
type Archive struct {
	dataset lode.Dataset
	config  Config
	metrics *metrics.Collector

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewFSArchive archives under root on the local filesystem.
func NewFSArchive(cfg Config, root string) (*Archive, error) {
	return NewArchive(cfg, lode.NewFSFactory(root))
}

// NewArchive creates an archive over factory. Use lode.NewMemoryFactory()
// in tests.
func NewArchive(cfg Config, factory lode.StoreFactory) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("archive config: %w", err)
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &Archive{dataset: ds, config: cfg, storeFactory: factory}, nil
}

// SetMetrics records write outcomes into c.
func (a *Archive) SetMetrics(c *metrics.Collector) {
	a.metrics = c
}

// Config returns the partition values.
func (a *Archive) Config() Config {
	return a.config
}

func (a *Archive) observe(err error) error {
	if err != nil {
		a.metrics.IncLodeWriteFailure()
		return err
	}
	a.metrics.IncLodeWriteSuccess()
	return nil
}

// WriteRun appends the run record.
func (a *Archive) WriteRun(ctx context.Context, rec RunRecord) error {
	_, err := a.dataset.Write(ctx, []any{toRunRecordMap(rec, a.config)}, lode.Metadata{})
	return a.observe(WrapWriteError(err, a.recordPath(RecordKindRun)))
}

// WriteMetrics appends a metrics snapshot.
func (a *Archive) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	_, err := a.dataset.Write(ctx, []any{toMetricsRecordMap(snap, a.config, completedAt)}, lode.Metadata{})
	return a.observe(WrapWriteError(err, a.recordPath(RecordKindMetrics)))
}

// PutFile implements Recorder.
func (a *Archive) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid archive filename %q", filename)
	}
	a.storeOnce.Do(func() {
		a.store, a.storeErr = a.storeFactory()
	})
	if a.storeErr != nil {
		return a.observe(WrapInitError(a.storeErr, a.config.Dataset))
	}
	path := a.FilePath(filename)
	return a.observe(WrapWriteError(a.store.Put(ctx, path, bytes.NewReader(data)), path))
}

// FilePath is the store path of an archived file:
// datasets/<ds>/partitions/source=<s>/category=<c>/day=<d>/run_id=<r>/files/<name>
func (a *Archive) FilePath(filename string) string {
	return a.partitionPrefix() + "/files/" + filename
}

// Location is the run's partition prefix in the store.
func (a *Archive) Location() string {
	return a.partitionPrefix()
}

func (a *Archive) recordPath(kind string) string {
	return a.partitionPrefix() + "/record_kind=" + kind
}

func (a *Archive) partitionPrefix() string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/category=%s/day=%s/run_id=%s",
		a.config.Dataset, a.config.Source, a.config.Category, a.config.Day, a.config.RunID)
}

// Close releases the archive. Datasets hold no open handles.
func (a *Archive) Close() error {
	return nil
}

// StoreFiles copies local files into the run's files/ prefix, keyed by
// base name, and returns the store paths.
func StoreFiles(ctx context.Context, r Recorder, paths []string) ([]string, error) {
	var stored []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return stored, fmt.Errorf("archive %s: %w", p, err)
		}
		name := filepath.Base(p)
		if err := r.PutFile(ctx, name, data); err != nil {
			return stored, err
		}
		stored = append(stored, name)
	}
	return stored, nil
}

var _ Recorder = (*Archive)(nil)

// StubRecorder records calls for tests.
type StubRecorder struct {
	mu      sync.Mutex
	Runs    []RunRecord
	Metrics []metrics.Snapshot
	Files   map[string][]byte
	Closed  bool
	// Err, when set, fails every write.
	Err error
}

// NewStubRecorder creates an empty stub.
func NewStubRecorder() *StubRecorder {
	return &StubRecorder{Files: map[string][]byte{}}
}

// WriteRun implements Recorder.
func (s *StubRecorder) WriteRun(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Runs = append(s.Runs, rec)
	return nil
}

// WriteMetrics implements Recorder.
func (s *StubRecorder) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Metrics = append(s.Metrics, snap)
	return nil
}

// PutFile implements Recorder.
func (s *StubRecorder) PutFile(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Files[filename] = data
	return nil
}

// Close implements Recorder.
func (s *StubRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

var _ Recorder = (*StubRecorder)(nil)
