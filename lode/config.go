// Package lode archives run records, metrics snapshots and output files in
// a Lode dataset on the local filesystem or S3.
//
// Records use a Hive layout partitioned by
// source/category/day/run_id/record_kind. Output files land next to the
// records under files/, outside the dataset manifests.
package lode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "agharvest"

var partitionKeys = []string{"source", "category", "day", "run_id", "record_kind"}

// newDataset opens dataset with the archive layout and JSONL codec. Reads
// and writes must agree on both.
func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// DeriveDay computes the partition day from the run start, YYYY-MM-DD UTC.
func DeriveDay(start time.Time) string {
	return start.UTC().Format("2006-01-02")
}

// Config holds the partition values of one run.
type Config struct {
	Dataset string
	// Source is the upstream system (giovanni, nass, local).
	Source string
	// Category is the command that produced the run.
	Category string
	Day      string
	RunID    string
}

// Validate checks that every partition value is present and path-safe.
func (c Config) Validate() error {
	values := []struct{ name, v string }{
		{"dataset", c.Dataset},
		{"source", c.Source},
		{"category", c.Category},
		{"day", c.Day},
		{"run_id", c.RunID},
	}
	var errs []error
	for _, kv := range values {
		switch {
		case kv.v == "":
			errs = append(errs, fmt.Errorf("%s is required", kv.name))
		case strings.ContainsAny(kv.v, "/="):
			errs = append(errs, fmt.Errorf("%s %q must not contain '/' or '='", kv.name, kv.v))
		}
	}
	return errors.Join(errs...)
}
