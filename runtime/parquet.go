package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/pithecene-io/agharvest/tabular"
)

// JoinJob joins every input file on Field and writes the result.
type JoinJob struct {
	// Inputs are file paths or glob patterns.
	Inputs []string
	Field  string
	Method tabular.JoinMethod
	// Source, when named, adds a column derived from each file name.
	Source *tabular.SourceColumn
	Output string
}

// Run implements Job.
func (j *JoinJob) Run(_ context.Context, rc *RunContext) (*JobResult, error) {
	res := &JobResult{Params: map[string]string{
		"inputs": strings.Join(j.Inputs, ";"),
		"field":  j.Field,
		"method": string(j.Method),
	}}
	if j.Field == "" || j.Output == "" {
		return res, fmt.Errorf("%w: join needs a field and an output file", ErrUsage)
	}
	files, err := ExpandInputs(j.Inputs)
	if err != nil {
		return res, err
	}
	inputs := make([]tabular.Input, 0, len(files))
	for _, f := range files {
		t, err := readTable(f)
		if err != nil {
			return res, fmt.Errorf("%w: read %s: %w", ErrUsage, f, err)
		}
		inputs = append(inputs, tabular.Input{Path: f, Table: t})
	}
	rc.Logger.Info("joining", map[string]any{"files": files, "field": j.Field, "method": string(j.Method)})

	joined, err := tabular.JoinAll(inputs, j.Field, j.Method, j.Source)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	res.Table = joined
	if err := writeTable(rc, j.Output, joined); err != nil {
		return res, err
	}
	res.Outputs = []string{j.Output}
	return res, nil
}

// AggregateJob reduces one file per calendar period and writes the
// result.
type AggregateJob struct {
	Input   string
	Options tabular.AggregateOptions
	Output  string
}

// Run implements Job.
func (j *AggregateJob) Run(_ context.Context, rc *RunContext) (*JobResult, error) {
	res := &JobResult{Params: map[string]string{
		"input":      j.Input,
		"time_field": j.Options.TimeField,
		"level":      string(j.Options.Level),
		"method":     j.Options.Method,
	}}
	if len(j.Options.Fields) > 0 {
		res.Params["fields"] = strings.Join(j.Options.Fields, ";")
	}
	if j.Input == "" || j.Output == "" {
		return res, fmt.Errorf("%w: aggregate needs an input and an output file", ErrUsage)
	}
	t, err := readTable(j.Input)
	if err != nil {
		return res, fmt.Errorf("%w: read %s: %w", ErrUsage, j.Input, err)
	}
	agg, err := tabular.Aggregate(t, j.Options)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	res.Table = agg
	if err := writeTable(rc, j.Output, agg); err != nil {
		return res, err
	}
	res.Outputs = []string{j.Output}
	return res, nil
}
