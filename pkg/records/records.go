// Package records defines the in-memory row model shared by the parser,
// transformers, quarantine writer and table stores.
//
// A Record is a column-name keyed map; a Frame pairs a slice of records with
// the ordered column definitions that give the rows a stable positional shape.
// Null values are represented by Go nil.
package records

import (
	"fmt"
	"strconv"
	"time"
)

// Type is the semantic type of a column.
type Type string

const (
	Int       Type = "int"       // int64
	Float     Type = "float"     // float64
	Text      Type = "text"      // string
	Timestamp Type = "timestamp" // time.Time (UTC)
	Date      Type = "date"      // time.Time truncated to UTC midnight
)

// DateLayout is the canonical textual form of a Date value.
const DateLayout = "2006-01-02"

// Column describes a single named, typed column.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	Type     Type   `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// Record is a single row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Frame is an ordered set of rows sharing one column layout.
type Frame struct {
	Columns []Column
	Rows    []Record
}

// NewFrame returns an empty frame with the given columns.
func NewFrame(cols []Column) *Frame {
	c := make([]Column, len(cols))
	copy(c, cols)
	return &Frame{Columns: c}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the column definition for name.
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether every name is a column of f.
func (f *Frame) Has(names ...string) error {
	for _, n := range names {
		if _, ok := f.Column(n); !ok {
			return fmt.Errorf("records: unknown column %q", n)
		}
	}
	return nil
}

// Values returns rec's values positionally aligned to f.Columns. Missing
// columns yield nil.
func (f *Frame) Values(rec Record) []any {
	out := make([]any, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = rec[c.Name]
	}
	return out
}

// Matrix returns all rows as positional slices, the shape bulk loaders expect.
func (f *Frame) Matrix() [][]any {
	out := make([][]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = f.Values(r)
	}
	return out
}

// WithRows returns a frame sharing f's columns with the given rows.
func (f *Frame) WithRows(rows []Record) *Frame {
	return &Frame{Columns: f.Columns, Rows: rows}
}

// SetColumn replaces the definition of an existing column or appends a new
// one. Row values are not touched.
func (f *Frame) SetColumn(col Column) {
	for i, c := range f.Columns {
		if c.Name == col.Name {
			f.Columns[i] = col
			return
		}
	}
	f.Columns = append(f.Columns, col)
}

// Format renders v as CSV cell text for a column of type typ. nil renders as
// the empty string.
func Format(typ Type, v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if typ == Date {
			return t.Format(DateLayout)
		}
		return t.Format("2006-01-02T15:04:05")
	default:
		return fmt.Sprint(t)
	}
}
