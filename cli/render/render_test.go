package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/agharvest/cli/reader"
	"github.com/pithecene-io/agharvest/metrics"
	"github.com/pithecene-io/agharvest/tabular"
	"github.com/pithecene-io/agharvest/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"table", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if err != nil && !strings.Contains(err.Error(), "json, table, or yaml") {
				t.Errorf("error should list valid formats: %v", err)
			}
		})
	}
}

func metadataView() *reader.MetadataView {
	return &reader.MetadataView{
		File:    "out.parquet",
		Source:  reader.SourceParquet,
		Columns: []string{"time", "precip"},
		Rows:    2,
		Fields: []reader.Entry{
			{Key: "Start Date", Value: "2020-01-15"},
			{Key: "End Date", Value: "2020-03-20"},
		},
	}
}

func TestRender_Formats(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"file": "out.parquet"`, `"key": "Start Date"`}},
		{FormatYAML, []string{"file: out.parquet", "key: Start Date"}},
		{FormatTable, []string{"file:", "rows:", "Start Date:", "2020-03-20", "time, precip"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRendererWithWriter(tt.format, true, &buf).Render(metadataView()); err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestRender_TableOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(metadataView()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "Start Date") > strings.Index(out, "End Date") {
		t.Errorf("fields out of order:\n%s", out)
	}
}

func TestRender_RunsTable(t *testing.T) {
	runs := []reader.RunItem{{
		RunID:      "run-1",
		Command:    "giovanni",
		Status:     types.OutcomeStepFailure,
		Step:       "login",
		StartedAt:  time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		DurationMs: 1500,
	}}
	var buf bytes.Buffer
	err := NewRendererWithWriter(FormatTable, true, &buf).Render(&reader.RunsView{Stats: reader.Summarize(runs), Runs: runs})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"total: 1", "failed: 1", "run_id", "run-1", "step_failure", "2026-02-03T10:00:00Z", "1.5s"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(&reader.RunsView{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty runs = %q", buf.String())
	}
}

func TestRender_DataTable(t *testing.T) {
	table := &tabular.Table{
		Columns: []string{"year", "Value"},
		Rows:    [][]any{{int64(2020), 1.5}, {int64(2021), nil}},
	}
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(table); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "year") || !strings.Contains(lines[1], "1.5") {
		t.Errorf("table = %q", lines)
	}
}

func TestRender_StructFallback(t *testing.T) {
	view := &reader.MetricsView{
		Ts: "2026-02-03T10:00:00Z",
		Snapshot: metrics.Snapshot{
			RunID:        "run-1",
			Downloads:    2,
			FailedByStep: map[string]int64{"login": 1},
		},
	}
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(view); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ts:", "run_id:", "run-1", "downloads:", "login=1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRender_StringList(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render([]string{"commodity_desc", "year"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "commodity_desc\nyear\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderTUI_Unsupported(t *testing.T) {
	r := NewRendererWithWriter(FormatTable, false, &bytes.Buffer{})
	if err := r.RenderTUI("giovanni", nil); err == nil || !strings.Contains(err.Error(), "--tui is not supported") {
		t.Errorf("err = %v", err)
	}
}
