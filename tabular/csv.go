package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	// Separator defaults to ','.
	Separator rune
	// Skip drops that many raw lines before the header.
	Skip int
}

// SplitLines splits text into lines without their terminators.
func SplitLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	return lines
}

// skipLines returns data after its first n lines.
func skipLines(data []byte, n int) []byte {
	for ; n > 0 && len(data) > 0; n-- {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return nil
		}
		data = data[i+1:]
	}
	return data
}

// ReadCSV parses a CSV payload. Column types are inferred: a column whose
// non-empty cells all parse as integers becomes int64, then float64, then
// bool; anything else stays string. Empty cells are nil.
func ReadCSV(data []byte, opts CSVOptions) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(skipLines(data, opts.Skip)))
	if opts.Separator != 0 {
		r.Comma = opts.Separator
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	t := &Table{Columns: header}

	var raw [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		raw = append(raw, rec)
	}

	parsers := make([]func(string) any, len(header))
	for c := range header {
		parsers[c] = inferColumn(raw, c)
	}
	t.Rows = make([][]any, len(raw))
	for i, rec := range raw {
		row := make([]any, len(header))
		for c := range header {
			if c < len(rec) && rec[c] != "" {
				row[c] = parsers[c](rec[c])
			}
		}
		t.Rows[i] = row
	}
	return t, nil
}

func inferColumn(raw [][]string, c int) func(string) any {
	var values []string
	for _, rec := range raw {
		if c < len(rec) && rec[c] != "" {
			values = append(values, strings.TrimSpace(rec[c]))
		}
	}
	all := func(ok func(string) bool) bool {
		for _, v := range values {
			if !ok(v) {
				return false
			}
		}
		return len(values) > 0
	}
	switch {
	case all(func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }):
		return func(s string) any { n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64); return n }
	case all(func(s string) bool { _, err := strconv.ParseFloat(s, 64); return err == nil }):
		return func(s string) any { f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64); return f }
	case all(func(s string) bool { return s == "True" || s == "False" }):
		return func(s string) any { return strings.TrimSpace(s) == "True" }
	default:
		return func(s string) any { return s }
	}
}

// EncodeCSV renders t as comma-separated text with a header row.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for c := range t.Columns {
			rec[c] = FormatCell(cell(row, c))
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes t to path.
func WriteCSV(path string, t *Table) error {
	data, err := EncodeCSV(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
