// Package tabular holds small in-memory tables read from CSV or Parquet,
// the writers for both formats and the join and aggregate operations used
// by the parquet commands.
//
// Cells are nil (missing), bool, int64, float64, string or time.Time.
package tabular

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// Table is a row-major table with named columns.
type Table struct {
	Columns []string
	Rows    [][]any
	// Metadata carries Parquet key/value metadata read from or written to
	// a file.
	Metadata map[string]string
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Columns, name)
}

// Column returns the cells of column name.
func (t *Table) Column(name string) ([]any, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = cell(row, i)
	}
	return out, nil
}

// Rename changes a column name in place. Renaming a missing column is an
// error.
func (t *Table) Rename(from, to string) error {
	i := t.Index(from)
	if i < 0 {
		return fmt.Errorf("rename: column %q not found", from)
	}
	t.Columns[i] = to
	return nil
}

// AddConstant appends a column holding v in every row.
func (t *Table) AddConstant(name string, v any) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], v)
	}
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// FormatCell renders a cell the way the CSV writer does.
func FormatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int64, float64, bool:
		return true
	}
	return false
}

// Select returns a table holding only columns, in that order.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		if idx[i] = t.Index(c); idx[i] < 0 {
			return nil, fmt.Errorf("select: column %q not found", c)
		}
	}
	out := &Table{Columns: slices.Clone(columns), Metadata: t.Metadata}
	out.Rows = make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		sel := make([]any, len(idx))
		for i, c := range idx {
			sel[i] = cell(row, c)
		}
		out.Rows[r] = sel
	}
	return out, nil
}

// SetColumnNames replaces every column name.
func (t *Table) SetColumnNames(names []string) error {
	if len(names) != len(t.Columns) {
		return fmt.Errorf("%d column names for %d columns", len(names), len(t.Columns))
	}
	t.Columns = slices.Clone(names)
	return nil
}
