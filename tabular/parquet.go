package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindFloat
	kindBool
)

var kindTypes = map[columnKind]reflect.Type{
	kindString: reflect.TypeFor[*string](),
	kindInt:    reflect.TypeFor[*int64](),
	kindFloat:  reflect.TypeFor[*float64](),
	kindBool:   reflect.TypeFor[*bool](),
}

// kindOf picks the narrowest Parquet type holding every cell of column c.
// Mixed integers and floats widen to float; anything else to string.
func kindOf(t *Table, c int) columnKind {
	var seen []columnKind
	for _, row := range t.Rows {
		var k columnKind
		switch cell(row, c).(type) {
		case nil:
			continue
		case int64:
			k = kindInt
		case float64:
			k = kindFloat
		case bool:
			k = kindBool
		default:
			k = kindString
		}
		if !slices.Contains(seen, k) {
			seen = append(seen, k)
		}
	}
	switch {
	case len(seen) == 0:
		return kindString
	case len(seen) == 1:
		return seen[0]
	case len(seen) == 2 && slices.Contains(seen, kindInt) && slices.Contains(seen, kindFloat):
		return kindFloat
	default:
		return kindString
	}
}

// rowType builds a struct type with one pointer (optional) field per column.
func rowType(t *Table) (reflect.Type, []columnKind) {
	fields := make([]reflect.StructField, len(t.Columns))
	kinds := make([]columnKind, len(t.Columns))
	for i, name := range t.Columns {
		kinds[i] = kindOf(t, i)
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("C%d", i),
			Type: kindTypes[kinds[i]],
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:"%s"`, columnTag(name))),
		}
	}
	return reflect.StructOf(fields), kinds
}

// columnTag makes a column name usable inside a struct tag.
func columnTag(name string) string {
	return strings.NewReplacer(",", "_", `"`, "_", "`", "_").Replace(name)
}

func setField(f reflect.Value, k columnKind, v any) {
	if v == nil {
		return
	}
	switch k {
	case kindInt:
		n := v.(int64)
		f.Set(reflect.ValueOf(&n))
	case kindFloat:
		x, _ := toFloat(v)
		f.Set(reflect.ValueOf(&x))
	case kindBool:
		b := v.(bool)
		f.Set(reflect.ValueOf(&b))
	default:
		s := FormatCell(v)
		f.Set(reflect.ValueOf(&s))
	}
}

// EncodeParquet writes t to w with its key/value metadata.
func EncodeParquet(w io.Writer, t *Table) error {
	if len(t.Columns) == 0 {
		return errors.New("parquet: table has no columns")
	}
	typ, kinds := rowType(t)
	schema := parquet.SchemaOf(reflect.New(typ).Interface())

	keys := make([]string, 0, len(t.Metadata))
	for k := range t.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	opts := []parquet.WriterOption{schema}
	for _, k := range keys {
		opts = append(opts, parquet.KeyValueMetadata(k, t.Metadata[k]))
	}

	pw := parquet.NewWriter(w, opts...)
	for _, row := range t.Rows {
		v := reflect.New(typ)
		for c := range t.Columns {
			setField(v.Elem().Field(c), kinds[c], cell(row, c))
		}
		if err := pw.Write(v.Interface()); err != nil {
			return fmt.Errorf("parquet: write row: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("parquet: close: %w", err)
	}
	return nil
}

// WriteParquet writes t to path.
func WriteParquet(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return EncodeParquet(f, t)
}

// ReadParquet loads a flat Parquet file with its key/value metadata.
func ReadParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	t, err := DecodeParquet(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// DecodeParquet reads a flat Parquet file of the given size.
func DecodeParquet(r io.ReaderAt, size int64) (*Table, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, err
	}
	t := &Table{Metadata: map[string]string{}}
	for _, kv := range pf.Metadata().KeyValueMetadata {
		t.Metadata[kv.Key] = kv.Value
	}

	fields := pf.Schema().Fields()
	types := make([]parquet.Type, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("column %q is nested", field.Name())
		}
		t.Columns = append(t.Columns, field.Name())
		types[i] = field.Type()
	}

	reader := parquet.NewReader(r)
	defer reader.Close()
	buf := make([]parquet.Row, 256)
	for {
		n, err := reader.ReadRows(buf)
		for _, pr := range buf[:n] {
			row := make([]any, len(fields))
			for _, v := range pr {
				c := v.Column()
				if c >= 0 && c < len(row) {
					row[c] = cellOf(v, types[c])
				}
			}
			t.Rows = append(t.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func cellOf(v parquet.Value, typ parquet.Type) any {
	if v.IsNull() {
		return nil
	}
	lt := typ.LogicalType()
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		n := int64(v.Int32())
		if lt != nil && lt.Date != nil {
			return time.Unix(n*86400, 0).UTC()
		}
		return n
	case parquet.Int64:
		n := v.Int64()
		if lt != nil && lt.Timestamp != nil {
			switch unit := lt.Timestamp.Unit; {
			case unit.Nanos != nil:
				return time.Unix(0, n).UTC()
			case unit.Micros != nil:
				return time.UnixMicro(n).UTC()
			default:
				return time.UnixMilli(n).UTC()
			}
		}
		return n
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
