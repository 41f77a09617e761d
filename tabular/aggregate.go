package tabular

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Level is the calendar granularity of an aggregation.
type Level string

const (
	LevelYear  Level = "year"
	LevelMonth Level = "month"
	LevelDay   Level = "day"
)

// ParseLevel validates s.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(s)); l {
	case LevelYear, LevelMonth, LevelDay:
		return l, nil
	}
	return "", fmt.Errorf("unknown aggregation level %q", s)
}

func (l Level) key(t time.Time) string {
	switch l {
	case LevelYear:
		return t.Format("2006")
	case LevelMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

type aggFunc func(xs []float64) (float64, bool)

var aggregations = map[string]aggFunc{
	"sum":    func(xs []float64) (float64, bool) { return sum(xs), true },
	"mean":   mean,
	"mad":    meanAbsDev,
	"median": func(xs []float64) (float64, bool) { return quantile(xs, 0.5) },
	"min": func(xs []float64) (float64, bool) {
		if len(xs) == 0 {
			return 0, false
		}
		return slices.Min(xs), true
	},
	"max": func(xs []float64) (float64, bool) {
		if len(xs) == 0 {
			return 0, false
		}
		return slices.Max(xs), true
	},
	"mode":     mode,
	"prod":     func(xs []float64) (float64, bool) { return product(xs), true },
	"std":      stddev,
	"var":      variance,
	"sem":      stderr,
	"skew":     skewness,
	"kurt":     kurtosis,
	"quantile": func(xs []float64) (float64, bool) { return quantile(xs, 0.5) },
}

// AggregateMethods lists the supported method names in sorted order.
func AggregateMethods() []string {
	out := []string{"count"}
	for k := range aggregations {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ParseAggregateMethod validates s. Element-wise transforms such as abs
// or cumsum do not reduce a group and are rejected.
func ParseAggregateMethod(s string) (string, error) {
	m := strings.ToLower(s)
	if m == "count" {
		return m, nil
	}
	if _, ok := aggregations[m]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unsupported aggregation method %q", s)
}

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	TimeField string
	Level     Level
	Method    string
	// Fields to aggregate. Empty means every numeric column other than
	// the time field.
	Fields []string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	"01/02/2006",
}

func parseTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case int64:
		if v >= 1000 && v <= 9999 {
			return time.Date(int(v), 1, 1, 0, 0, 0, 0, time.UTC), nil
		}
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", FormatCell(v))
}

// Aggregate groups rows by the calendar level of TimeField and reduces
// each field with Method. Output columns are the level followed by
// "<method>_<field>", with groups in ascending order.
func Aggregate(t *Table, opts AggregateOptions) (*Table, error) {
	method, err := ParseAggregateMethod(opts.Method)
	if err != nil {
		return nil, err
	}
	ti := t.Index(opts.TimeField)
	if ti < 0 {
		return nil, fmt.Errorf("aggregate: time field %q not found", opts.TimeField)
	}
	level := opts.Level
	if level == "" {
		level = LevelYear
	}

	fields, err := aggregateFields(t, opts, method)
	if err != nil {
		return nil, err
	}

	groups := map[string][]int{}
	for r, row := range t.Rows {
		ts, err := parseTime(cell(row, ti))
		if err != nil {
			return nil, fmt.Errorf("aggregate: row %d: %w", r, err)
		}
		k := level.key(ts)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[string])

	out := &Table{Columns: []string{string(level)}}
	for _, f := range fields {
		out.Columns = append(out.Columns, method+"_"+f)
	}
	for _, k := range keys {
		row := []any{k}
		for _, f := range fields {
			fi := t.Index(f)
			var xs []float64
			var count int64
			for _, r := range groups[k] {
				v := cell(t.Rows[r], fi)
				if v == nil {
					continue
				}
				count++
				if x, ok := toFloat(v); ok {
					xs = append(xs, x)
				}
			}
			if method == "count" {
				row = append(row, count)
				continue
			}
			if x, ok := aggregations[method](xs); ok {
				row = append(row, x)
			} else {
				row = append(row, nil)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func aggregateFields(t *Table, opts AggregateOptions, method string) ([]string, error) {
	numeric := func(c int) bool {
		for _, row := range t.Rows {
			if v := cell(row, c); v != nil {
				return isNumeric(v)
			}
		}
		return false
	}
	if len(opts.Fields) > 0 {
		for _, f := range opts.Fields {
			c := t.Index(f)
			if c < 0 {
				return nil, fmt.Errorf("aggregate: field %q not found", f)
			}
			if method != "count" && !numeric(c) {
				return nil, fmt.Errorf("aggregate: field %q is not numeric", f)
			}
		}
		return opts.Fields, nil
	}
	var fields []string
	for c, name := range t.Columns {
		if name == opts.TimeField || name == string(opts.Level) {
			continue
		}
		if method == "count" || numeric(c) {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("aggregate: no numeric fields")
	}
	return fields, nil
}
