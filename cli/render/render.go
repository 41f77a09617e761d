// Package render writes command results as json, yaml or a plain table.
//
// Without --format a terminal gets a table and anything else gets json.
// --no-color applies to the table only; the TUI keeps its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/agharvest/cli/reader"
	"github.com/pithecene-io/agharvest/cli/tui"
	"github.com/pithecene-io/agharvest/tabular"
)

// Format is an output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a --format value. Empty means "choose by terminal".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
}

// Renderer writes one result to its output.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer reads --format and --no-color from the command context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	return &Renderer{format: format, noColor: c.Bool("no-color"), out: c.App.Writer}, nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the selected format.
func (r *Renderer) Format() Format { return r.format }

// Render writes data in the selected format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	}
	return fmt.Errorf("unknown format: %s", r.format)
}

// RenderTUI runs the Bubble Tea view for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch v := data.(type) {
	case *tabular.Table:
		writeGrid(w, v.Columns, len(v.Rows), func(i int) []string {
			cells := make([]string, len(v.Columns))
			for c := range v.Columns {
				if c < len(v.Rows[i]) {
					cells[c] = tabular.FormatCell(v.Rows[i][c])
				}
			}
			return cells
		})
	case *reader.MetadataView:
		writePairs(w, []reader.Entry{
			{Key: "file", Value: v.File},
			{Key: "source", Value: v.Source},
		})
		if v.Source == reader.SourceParquet {
			writePairs(w, []reader.Entry{
				{Key: "rows", Value: fmt.Sprint(v.Rows)},
				{Key: "columns", Value: strings.Join(v.Columns, ", ")},
			})
		}
		if v.RenameOld != "" || v.RenameNew != "" {
			writePairs(w, []reader.Entry{{Key: "rename", Value: v.RenameOld + " -> " + v.RenameNew}})
		}
		writePairs(w, v.Fields)
		writePairs(w, v.Other)
	case *reader.RunsView:
		fmt.Fprintf(w, "total: %d\tsucceeded: %d\tfailed: %d\n\n", v.Stats.Total, v.Stats.Succeeded, v.Stats.Failed)
		headers := []string{"run_id", "command", "status", "step", "started_at", "duration"}
		writeGrid(w, headers, len(v.Runs), func(i int) []string {
			run := v.Runs[i]
			return []string{
				run.RunID, run.Command, r.status(string(run.Status)), run.Step,
				run.StartedAt.Format(time.RFC3339),
				(time.Duration(run.DurationMs) * time.Millisecond).String(),
			}
		})
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s:\t%s\n", k, v[k])
		}
	default:
		r.renderStruct(w, data)
	}
	return nil
}

func (r *Renderer) status(s string) string {
	if r.noColor {
		return s
	}
	return tui.StatusStyle(s).Render(s)
}

func writeGrid(w io.Writer, headers []string, n int, rowAt func(int) []string) {
	if n == 0 {
		fmt.Fprintln(w, "(no results)")
		return
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for i := range n {
		fmt.Fprintln(w, strings.Join(rowAt(i), "\t"))
	}
}

func writePairs(w io.Writer, entries []reader.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s:\t%s\n", e.Key, e.Value)
	}
}

// renderStruct prints exported struct fields as "name: value", named by
// their json tags.
func (r *Renderer) renderStruct(w io.Writer, data any) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			fmt.Fprintln(w, "(no results)")
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		fmt.Fprintf(w, "%v\n", data)
		return
	}
	r.structFields(w, v)
}

func (r *Renderer) structFields(w io.Writer, v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			r.structFields(w, v.Field(i))
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", fieldName(f), formatValue(v.Field(i)))
	}
}

func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		keys := v.MapKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%v=%v", k.Interface(), v.MapIndex(k).Interface()))
		}
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v.Interface())
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
