package builtin

import (
	"strconv"
	"strings"
	"time"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Coerce converts string cells into the declared column types. Cells that
// fail to parse become nil rather than failing the batch, which mirrors a
// permissive CSV reader. Records are modified in place.
type Coerce struct {
	Types  map[string]records.Type
	Layout string // date layout; records.DateLayout when empty
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Types) == 0 {
		return in
	}
	for _, r := range in {
		for field, typ := range c.Types {
			v, ok := r[field]
			if !ok || v == nil {
				continue
			}
			s, isStr := v.(string)
			if !isStr {
				continue
			}
			r[field] = c.Value(typ, s)
		}
	}
	return in
}

// Value coerces a single raw cell. Empty input is null for every type.
func (c Coerce) Value(typ records.Type, s string) any {
	if s == "" {
		return nil
	}
	switch typ {
	case records.Int:
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i
		}
		return nil
	case records.Float:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
		return nil
	case records.Date:
		layout := c.Layout
		if layout == "" {
			layout = records.DateLayout
		}
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
		return nil
	default:
		return s
	}
}
