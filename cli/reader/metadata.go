package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pithecene-io/agharvest/fetch"
	"github.com/pithecene-io/agharvest/tabular"
)

// ReadMetadata loads the metadata of an output file. A .parquet file is
// read for its key/value metadata; any other path is read as a companion
// file, and a CSV path is redirected to its companion.
func ReadMetadata(path string, sep rune) (*MetadataView, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return readParquetMetadata(path)
	}
	sidecar := path
	if !strings.HasSuffix(path, ".metadata") {
		sidecar = fetch.SidecarPath(path)
	}
	data, err := os.ReadFile(sidecar)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no metadata file for %s", path)
		}
		return nil, err
	}
	m := tabular.ReadSidecar(data, sep)
	view := &MetadataView{File: sidecar, Source: SourceSidecar, Fields: entries(m.Fields)}
	if m.Rename != nil {
		view.RenameOld, view.RenameNew = m.Rename.Old, m.Rename.New
	}
	return view, nil
}

func readParquetMetadata(path string) (*MetadataView, error) {
	t, err := tabular.ReadParquet(path)
	if err != nil {
		return nil, err
	}
	view := &MetadataView{
		File:    path,
		Source:  SourceParquet,
		Columns: t.Columns,
		Rows:    len(t.Rows),
		Fields:  []Entry{},
	}
	var other []string
	for k, v := range t.Metadata {
		switch k {
		case tabular.KeyCSVMetadata:
			fields, err := orderedObject([]byte(v))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tabular.KeyCSVMetadata, err)
			}
			view.Fields = fields
		case tabular.KeyGUMetadata:
			var gu struct {
				Rename *tabular.Rename `json:"rename"`
			}
			if err := json.Unmarshal([]byte(v), &gu); err != nil {
				return nil, fmt.Errorf("%s: %w", tabular.KeyGUMetadata, err)
			}
			if gu.Rename != nil {
				view.RenameOld, view.RenameNew = gu.Rename.Old, gu.Rename.New
			}
		default:
			other = append(other, k)
		}
	}
	sort.Strings(other)
	for _, k := range other {
		view.Other = append(view.Other, Entry{Key: k, Value: t.Metadata[k]})
	}
	return view, nil
}

// orderedObject decodes a flat JSON object of strings keeping key order.
func orderedObject(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}
	out := []Entry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		out = append(out, Entry{Key: key, Value: s})
	}
	return out, nil
}

func entries(fields []tabular.Field) []Entry {
	out := make([]Entry, len(fields))
	for i, f := range fields {
		out[i] = Entry{Key: f.Key, Value: f.Value}
	}
	return out
}
