package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/agharvest/quickstats"
	"github.com/pithecene-io/agharvest/tabular"
)

// QuickStatsJob downloads QuickStats records, optionally projects and
// renames their columns, and writes them to Output or hands the table
// back for printing.
type QuickStatsJob struct {
	Client     *quickstats.Client
	Conditions []quickstats.Condition
	// Columns projects the records; empty keeps every column.
	Columns []string
	// ColumnNames renames the projected columns positionally.
	ColumnNames []string
	// Output is a .csv or Parquet path. Empty means no file.
	Output string
}

// Params is the query as recorded in the run archive.
func (j *QuickStatsJob) Params() map[string]string {
	p := map[string]string{}
	for _, c := range j.Conditions {
		p[c.Key()] = c.Value
	}
	if len(j.Columns) > 0 {
		p["output_columns"] = strings.Join(j.Columns, ";")
	}
	return p
}

// Run implements Job.
func (j *QuickStatsJob) Run(ctx context.Context, rc *RunContext) (*JobResult, error) {
	res := &JobResult{Params: j.Params()}
	if j.Client == nil {
		return res, fmt.Errorf("%w: no QuickStats client", ErrUsage)
	}
	if len(j.ColumnNames) > 0 && len(j.ColumnNames) != len(j.Columns) {
		return res, fmt.Errorf("%w: %d column names for %d output columns", ErrUsage, len(j.ColumnNames), len(j.Columns))
	}

	table, err := j.Client.Data(ctx, j.Conditions)
	rc.Collector.AddDownload(0, err != nil)
	if err != nil {
		if errors.Is(err, quickstats.ErrNoAPIKey) {
			return res, fmt.Errorf("%w: %w", ErrUsage, err)
		}
		return res, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	rc.Logger.Info("records fetched", map[string]any{"rows": len(table.Rows), "columns": len(table.Columns)})

	if table, err = shape(table, j.Columns, j.ColumnNames); err != nil {
		return res, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	res.Table = table
	if j.Output == "" {
		return res, nil
	}
	if err := writeTable(rc, j.Output, table); err != nil {
		return res, err
	}
	res.Outputs = []string{j.Output}
	return res, nil
}

func shape(t *tabular.Table, columns, names []string) (*tabular.Table, error) {
	if len(columns) == 0 {
		return t, nil
	}
	out, err := t.Select(columns)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if err := out.SetColumnNames(names); err != nil {
			return nil, err
		}
	}
	return out, nil
}
