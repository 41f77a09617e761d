package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/agharvest/tabular"
)

// DefaultRenameIndex is the column renamed when no old name is given. The
// first data column of a portal time series follows the time column.
const DefaultRenameIndex = 1

// PrepareOptions describes how a downloaded CSV payload is persisted.
type PrepareOptions struct {
	// Separator of the payload. Defaults to ','.
	Separator rune
	// SkipRows, when positive, is the number of lines before the header.
	SkipRows int
	// SkipSignature locates the header line when SkipRows is not set.
	SkipSignature string
	// RenameTo enables a column rename.
	RenameTo   string
	RenameFrom string
	// RenameIndex picks the column when RenameFrom is empty.
	RenameIndex int
}

// Plan is the outcome of Prepare.
type Plan struct {
	// Skip is the number of preamble lines, or -1 for none.
	Skip      int
	Separator rune
	Rename    *tabular.Rename
	Metadata  tabular.Metadata
}

// SkipIndex returns the index of the first line containing signature, or
// -1 when there is none.
func SkipIndex(payload []byte, signature string) int {
	if signature == "" {
		return -1
	}
	for i, line := range tabular.SplitLines(payload) {
		if strings.Contains(line, signature) {
			return i
		}
	}
	return -1
}

// Prepare parses payload into a table and derives its rename and
// metadata. The rename is applied to the returned table.
func Prepare(payload []byte, opts PrepareOptions) (*tabular.Table, Plan, error) {
	plan := Plan{Skip: -1, Separator: opts.Separator}
	if plan.Separator == 0 {
		plan.Separator = ','
	}
	switch {
	case opts.SkipRows > 0:
		plan.Skip = opts.SkipRows
	case opts.SkipSignature != "":
		plan.Skip = SkipIndex(payload, opts.SkipSignature)
	}

	table, err := tabular.ReadCSV(payload, tabular.CSVOptions{
		Separator: plan.Separator,
		Skip:      max(plan.Skip, 0),
	})
	if err != nil {
		return nil, plan, fmt.Errorf("parse artifact: %w", err)
	}

	if opts.RenameTo != "" {
		old := opts.RenameFrom
		if old == "" {
			idx := opts.RenameIndex
			if idx < 0 || idx >= len(table.Columns) {
				return nil, plan, fmt.Errorf("rename: column index %d out of range (%d columns)", idx, len(table.Columns))
			}
			old = table.Columns[idx]
		}
		if err := table.Rename(old, opts.RenameTo); err != nil {
			return nil, plan, err
		}
		plan.Rename = &tabular.Rename{Old: old, New: opts.RenameTo}
	}

	plan.Metadata = preamble(payload, plan)
	return table, plan, nil
}

// preamble collects the lines through the header row and the key/value
// fields found before it.
func preamble(payload []byte, plan Plan) tabular.Metadata {
	m := tabular.Metadata{Rename: plan.Rename}
	lines := tabular.SplitLines(payload)
	for i, line := range lines {
		if i > plan.Skip {
			break
		}
		m.Preamble = append(m.Preamble, line)
		if i >= plan.Skip {
			continue
		}
		if f, ok := tabular.ParseField(strings.Split(line, string(plan.Separator))); ok {
			m.Fields = append(m.Fields, f)
		}
	}
	return m
}

// Outputs names the files Save writes. Empty paths are skipped.
type Outputs struct {
	CSVPath string
	// CSVMetadata writes "<CSVPath>.metadata" next to the CSV and embeds
	// the metadata in the Parquet output.
	CSVMetadata bool
	ParquetPath string
}

// Files lists the paths Save writes for o.
func (o Outputs) Files() []string {
	var files []string
	if o.CSVPath != "" {
		files = append(files, o.CSVPath)
		if o.CSVMetadata {
			files = append(files, SidecarPath(o.CSVPath))
		}
	}
	if o.ParquetPath != "" {
		files = append(files, o.ParquetPath)
	}
	return files
}

// SidecarPath is the companion metadata file of a CSV output.
func SidecarPath(csvPath string) string {
	return csvPath + ".metadata"
}

// Save writes table to every requested output.
func Save(table *tabular.Table, plan Plan, out Outputs) error {
	if out.CSVPath == "" && out.ParquetPath == "" {
		return errors.New("no output file requested")
	}
	if out.CSVPath != "" {
		if err := tabular.WriteCSV(out.CSVPath, table); err != nil {
			return err
		}
		if out.CSVMetadata {
			if err := plan.Metadata.WriteSidecar(SidecarPath(out.CSVPath), plan.Separator); err != nil {
				return err
			}
		}
	}
	if out.ParquetPath != "" {
		pt := *table
		pt.Metadata = nil
		if out.CSVMetadata {
			kv, err := plan.Metadata.KeyValues()
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			pt.Metadata = kv
		}
		if err := tabular.WriteParquet(out.ParquetPath, &pt); err != nil {
			return err
		}
	}
	return nil
}
