package tabular

import (
	"cmp"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
)

// JoinMethod selects which unmatched rows a join keeps.
type JoinMethod string

const (
	JoinInner JoinMethod = "inner"
	JoinLeft  JoinMethod = "left"
	JoinRight JoinMethod = "right"
	JoinOuter JoinMethod = "outer"
)

// JoinMethods lists every method.
func JoinMethods() []JoinMethod {
	return []JoinMethod{JoinInner, JoinLeft, JoinRight, JoinOuter}
}

// ParseJoinMethod validates s.
func ParseJoinMethod(s string) (JoinMethod, error) {
	m := JoinMethod(s)
	if !slices.Contains(JoinMethods(), m) {
		return "", fmt.Errorf("unknown join method %q", s)
	}
	return m, nil
}

// DefaultSourcePattern extracts a two-letter prefix such as a state code
// from file names like "IA_yield.parquet".
const DefaultSourcePattern = `^([a-zA-Z][a-zA-Z])_.+`

// SourceColumn adds a constant column derived from each input's file name.
type SourceColumn struct {
	Name string
	// Pattern's first capture group, matched against the base name, is
	// the column value. Empty means DefaultSourcePattern.
	Pattern string
}

// Input is a table together with the file it came from.
type Input struct {
	Path  string
	Table *Table
}

// JoinAll folds inputs left to right, joining each on field.
func JoinAll(inputs []Input, field string, method JoinMethod, source *SourceColumn) (*Table, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("join: no inputs")
	}
	var re *regexp.Regexp
	if source != nil && source.Name != "" {
		pattern := source.Pattern
		if pattern == "" {
			pattern = DefaultSourcePattern
		}
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("join: source pattern: %w", err)
		}
	}
	prepare := func(in Input) (*Table, error) {
		if re == nil || in.Table.Index(source.Name) >= 0 {
			return in.Table, nil
		}
		base := filepath.Base(in.Path)
		m := re.FindStringSubmatch(base)
		if len(m) < 2 {
			return nil, fmt.Errorf("join: %s does not match source pattern %q", base, re)
		}
		in.Table.AddConstant(source.Name, m[1])
		return in.Table, nil
	}

	acc, err := prepare(inputs[0])
	if err != nil {
		return nil, err
	}
	for _, in := range inputs[1:] {
		right, err := prepare(in)
		if err != nil {
			return nil, err
		}
		if acc, err = Join(acc, right, field, method); err != nil {
			return nil, fmt.Errorf("join %s: %w", in.Path, err)
		}
	}
	return acc, nil
}

// Join merges left and right on field. Non-key columns present on both
// sides get "_x" and "_y" suffixes. Outer joins are sorted by key.
func Join(left, right *Table, field string, method JoinMethod) (*Table, error) {
	lk, rk := left.Index(field), right.Index(field)
	if lk < 0 {
		return nil, fmt.Errorf("left table has no column %q", field)
	}
	if rk < 0 {
		return nil, fmt.Errorf("right table has no column %q", field)
	}

	cols, err := joinedColumns(left, right, lk, rk)
	if err != nil {
		return nil, err
	}
	out := &Table{Columns: cols}

	combine := func(l, r []any) []any {
		row := make([]any, 0, len(cols))
		key := cell(l, lk)
		if l == nil {
			key = cell(r, rk)
		}
		for i := range left.Columns {
			if i == lk {
				row = append(row, key)
				continue
			}
			row = append(row, cellOrNil(l, i))
		}
		for i := range right.Columns {
			if i != rk {
				row = append(row, cellOrNil(r, i))
			}
		}
		return row
	}

	rightIndex := indexRows(right, rk)
	leftIndex := indexRows(left, lk)

	switch method {
	case JoinInner, JoinLeft, JoinOuter:
		for _, l := range left.Rows {
			matches := rightIndex[FormatCell(cell(l, lk))]
			if len(matches) == 0 && method != JoinInner {
				out.Rows = append(out.Rows, combine(l, nil))
			}
			for _, r := range matches {
				out.Rows = append(out.Rows, combine(l, right.Rows[r]))
			}
		}
		if method == JoinOuter {
			for _, r := range right.Rows {
				if len(leftIndex[FormatCell(cell(r, rk))]) == 0 {
					out.Rows = append(out.Rows, combine(nil, r))
				}
			}
			slices.SortStableFunc(out.Rows, func(a, b []any) int {
				return compareCells(a[lk], b[lk])
			})
		}
	case JoinRight:
		for _, r := range right.Rows {
			matches := leftIndex[FormatCell(cell(r, rk))]
			if len(matches) == 0 {
				out.Rows = append(out.Rows, combine(nil, r))
			}
			for _, l := range matches {
				out.Rows = append(out.Rows, combine(left.Rows[l], r))
			}
		}
	default:
		return nil, fmt.Errorf("unknown join method %q", method)
	}
	return out, nil
}

func cellOrNil(row []any, i int) any {
	if row == nil {
		return nil
	}
	return cell(row, i)
}

func indexRows(t *Table, key int) map[string][]int {
	idx := make(map[string][]int, len(t.Rows))
	for i, row := range t.Rows {
		k := FormatCell(cell(row, key))
		idx[k] = append(idx[k], i)
	}
	return idx
}

func joinedColumns(left, right *Table, lk, rk int) ([]string, error) {
	inRight := map[string]bool{}
	for i, c := range right.Columns {
		if i != rk {
			inRight[c] = true
		}
	}
	inLeft := map[string]bool{}
	for i, c := range left.Columns {
		if i != lk {
			inLeft[c] = true
		}
	}
	var cols []string
	for i, c := range left.Columns {
		if i != lk && inRight[c] {
			c += "_x"
		}
		cols = append(cols, c)
	}
	for i, c := range right.Columns {
		if i == rk {
			continue
		}
		if inLeft[c] {
			c += "_y"
		}
		cols = append(cols, c)
	}
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q after join", c)
		}
		seen[c] = true
	}
	return cols, nil
}

// compareCells orders nil last, numbers numerically and everything else
// by its rendered text.
func compareCells(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	if oka && okb {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(FormatCell(a), FormatCell(b))
}
