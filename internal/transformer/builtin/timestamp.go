package builtin

import (
	"time"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// DefaultTimestampLayout matches the ISO-8601 form written by the order system.
const DefaultTimestampLayout = "2006-01-02T15:04:05"

// Timestamp parses a text column into a UTC time.Time and, when DateColumn is
// set, derives the calendar date of that instant. Values must match Layout
// exactly (no fractional seconds or zone suffix the layout lacks); anything
// else becomes nil in both columns. Input records are not modified; each output record is
// a clone.
type Timestamp struct {
	Column     string
	Layout     string
	DateColumn string
}

func (ts Timestamp) Apply(in []records.Record) []records.Record {
	layout := ts.Layout
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	out := make([]records.Record, len(in))
	for i, r := range in {
		c := r.Clone()
		parsed := ts.parse(layout, r[ts.Column])
		if parsed == nil {
			c[ts.Column] = nil
		} else {
			c[ts.Column] = *parsed
		}
		if ts.DateColumn != "" {
			if parsed == nil {
				c[ts.DateColumn] = nil
			} else {
				y, m, d := parsed.Date()
				c[ts.DateColumn] = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			}
		}
		out[i] = c
	}
	return out
}

func (ts Timestamp) parse(layout string, v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case string:
		p, err := time.ParseInLocation(layout, t, time.UTC)
		if err != nil || p.Format(layout) != t {
			return nil
		}
		return &p
	default:
		return nil
	}
}
