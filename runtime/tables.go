package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pithecene-io/agharvest/tabular"
)

// writeTable saves t as CSV when path ends in .csv and as Parquet
// otherwise.
func writeTable(rc *RunContext, path string, t *tabular.Table) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = tabular.WriteCSV(path, t)
	} else {
		err = tabular.WriteParquet(path, t)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	rc.Collector.AddFileWritten(int64(len(t.Rows)))
	rc.Logger.Info("output written", map[string]any{"file": path, "rows": len(t.Rows)})
	return nil
}

// readTable loads a Parquet or, for .csv paths, a comma separated file.
func readTable(path string) (*tabular.Table, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return tabular.ReadParquet(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return tabular.ReadCSV(data, tabular.CSVOptions{})
}

// ExpandInputs resolves glob patterns into a sorted, de-duplicated file
// list. A pattern matching nothing is an error.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrUsage, p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no file matches %q", ErrUsage, p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// existing filters paths down to the files present on disk.
func existing(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
