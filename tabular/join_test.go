package tabular_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/agharvest/tabular"
)

func joinFixtures() (*tabular.Table, *tabular.Table) {
	left := &tabular.Table{
		Columns: []string{"year", "yield", "note"},
		Rows: [][]any{
			{int64(2001), 10.0, "l1"},
			{int64(2003), 30.0, "l3"},
		},
	}
	right := &tabular.Table{
		Columns: []string{"year", "precip", "note"},
		Rows: [][]any{
			{int64(2002), 2.0, "r2"},
			{int64(2001), 1.0, "r1"},
		},
	}
	return left, right
}

func TestJoin(t *testing.T) {
	cols := []string{"year", "yield", "note_x", "precip", "note_y"}
	tests := []struct {
		method tabular.JoinMethod
		rows   [][]any
	}{
		{tabular.JoinInner, [][]any{
			{int64(2001), 10.0, "l1", 1.0, "r1"},
		}},
		{tabular.JoinLeft, [][]any{
			{int64(2001), 10.0, "l1", 1.0, "r1"},
			{int64(2003), 30.0, "l3", nil, nil},
		}},
		{tabular.JoinRight, [][]any{
			{int64(2002), nil, nil, 2.0, "r2"},
			{int64(2001), 10.0, "l1", 1.0, "r1"},
		}},
		{tabular.JoinOuter, [][]any{
			{int64(2001), 10.0, "l1", 1.0, "r1"},
			{int64(2002), nil, nil, 2.0, "r2"},
			{int64(2003), 30.0, "l3", nil, nil},
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			left, right := joinFixtures()
			got, err := tabular.Join(left, right, "year", tt.method)
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
			if diff := cmp.Diff(&tabular.Table{Columns: cols, Rows: tt.rows}, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoin_MissingKey(t *testing.T) {
	left, right := joinFixtures()
	if _, err := tabular.Join(left, right, "state", tabular.JoinInner); err == nil {
		t.Fatal("expected error for missing key column")
	}
}

func TestJoinAll_SourceColumn(t *testing.T) {
	mk := func(year int64, v float64) *tabular.Table {
		return &tabular.Table{Columns: []string{"year", "v"}, Rows: [][]any{{year, v}}}
	}
	inputs := []tabular.Input{
		{Path: "/data/IA_yield.parquet", Table: mk(2001, 1)},
		{Path: "/data/NE_yield.parquet", Table: mk(2002, 2)},
	}
	got, err := tabular.JoinAll(inputs, "year", tabular.JoinOuter, &tabular.SourceColumn{Name: "state"})
	if err != nil {
		t.Fatalf("JoinAll: %v", err)
	}
	want := &tabular.Table{
		Columns: []string{"year", "v_x", "state_x", "v_y", "state_y"},
		Rows: [][]any{
			{int64(2001), 1.0, "IA", nil, nil},
			{int64(2002), nil, nil, 2.0, "NE"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinAll_SourcePatternMismatch(t *testing.T) {
	inputs := []tabular.Input{
		{Path: "yield.parquet", Table: &tabular.Table{Columns: []string{"year"}}},
	}
	_, err := tabular.JoinAll(inputs, "year", tabular.JoinInner, &tabular.SourceColumn{Name: "state"})
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Fatalf("err = %v, want pattern mismatch", err)
	}
}

func TestParseJoinMethod(t *testing.T) {
	for _, m := range tabular.JoinMethods() {
		if _, err := tabular.ParseJoinMethod(string(m)); err != nil {
			t.Errorf("ParseJoinMethod(%q): %v", m, err)
		}
	}
	if _, err := tabular.ParseJoinMethod("cross"); err == nil {
		t.Error("expected error for cross")
	}
}
