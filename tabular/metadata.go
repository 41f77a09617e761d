package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Parquet key/value metadata keys.
const (
	KeyCSVMetadata = "csv_metadata"
	KeyGUMetadata  = "gu_metadata"
)

// Sidecar keys recording a column rename.
const (
	SidecarRenameOld = "gu_rename_old_col_name"
	SidecarRenameNew = "gu_rename_new_col_name"
)

// Field is one key/value pair of the preamble, in source order.
type Field struct {
	Key   string
	Value string
}

// Rename records a column rename applied to the output.
type Rename struct {
	Old string `json:"old_col_name"`
	New string `json:"new_col_name"`
}

// Metadata is carried next to an output file.
type Metadata struct {
	// Preamble holds the raw leading lines through the header row.
	Preamble []string
	// Fields are the key/value pairs parsed from the preamble.
	Fields []Field
	Rename *Rename
}

// Sidecar renders the companion file of a CSV output: the preamble lines
// followed by the rename record, one "key<sep>value" per line.
func (m Metadata) Sidecar(sep rune) []byte {
	if sep == 0 {
		sep = ','
	}
	var b bytes.Buffer
	for _, line := range m.Preamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if m.Rename != nil {
		fmt.Fprintf(&b, "%s%c%s\n", SidecarRenameOld, sep, m.Rename.Old)
		fmt.Fprintf(&b, "%s%c%s\n", SidecarRenameNew, sep, m.Rename.New)
	}
	return b.Bytes()
}

// WriteSidecar writes the companion file to path.
func (m Metadata) WriteSidecar(path string, sep rune) error {
	if err := os.WriteFile(path, m.Sidecar(sep), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// KeyValues renders the Parquet key/value metadata: csv_metadata holds the
// preamble fields as a JSON object, gu_metadata the rename record.
func (m Metadata) KeyValues() (map[string]string, error) {
	fields, err := FieldsJSON(m.Fields)
	if err != nil {
		return nil, err
	}
	kv := map[string]string{KeyCSVMetadata: string(fields)}
	if m.Rename != nil {
		gu, err := json.Marshal(map[string]*Rename{"rename": m.Rename})
		if err != nil {
			return nil, err
		}
		kv[KeyGUMetadata] = string(gu)
	}
	return kv, nil
}

// FieldsJSON encodes fields as a JSON object preserving their order. Later
// duplicates win.
func FieldsJSON(fields []Field) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	seen := map[string]int{}
	var order []Field
	for _, f := range fields {
		if i, ok := seen[f.Key]; ok {
			order[i].Value = f.Value
			continue
		}
		seen[f.Key] = len(order)
		order = append(order, f)
	}
	for i, f := range order {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ParseField reads one preamble line. A first field ending in ':' takes
// the next field as its value; a single field is split at its first ':'.
func ParseField(fields []string) (Field, bool) {
	switch {
	case len(fields) == 0:
		return Field{}, false
	case len(fields) >= 2 && strings.HasSuffix(strings.TrimSpace(fields[0]), ":"):
		key := strings.TrimSuffix(strings.TrimSpace(fields[0]), ":")
		if key == "" {
			return Field{}, false
		}
		return Field{Key: key, Value: strings.TrimSpace(fields[1])}, true
	case len(fields) == 1 || allEmpty(fields[1:]):
		key, value, ok := strings.Cut(fields[0], ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Field{}, false
		}
		return Field{Key: key, Value: strings.TrimSpace(value)}, true
	}
	return Field{}, false
}

func allEmpty(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// ReadSidecar parses a companion file back into its fields, including the
// rename record when present.
func ReadSidecar(data []byte, sep rune) Metadata {
	if sep == 0 {
		sep = ','
	}
	var m Metadata
	var rename Rename
	for _, line := range SplitLines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, string(sep))
		switch parts[0] {
		case SidecarRenameOld:
			rename.Old = strings.Join(parts[1:], string(sep))
			continue
		case SidecarRenameNew:
			rename.New = strings.Join(parts[1:], string(sep))
			continue
		}
		m.Preamble = append(m.Preamble, line)
		if f, ok := ParseField(parts); ok {
			m.Fields = append(m.Fields, f)
		}
	}
	if rename.Old != "" || rename.New != "" {
		m.Rename = &rename
	}
	return m
}
