package builtin

import (
	"math"
	"strconv"
	"time"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// appendValue writes a type-tagged, unambiguous encoding of v to b. Two
// values encode identically only when they are equal under the same type,
// so nil never collides with "" and int64(1) never collides with "1".
func appendValue(b []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(b, 0x00)
	case string:
		b = append(b, 's')
		b = strconv.AppendInt(b, int64(len(t)), 10)
		b = append(b, ':')
		return append(b, t...)
	case int64:
		b = append(b, 'i')
		return strconv.AppendInt(b, t, 10)
	case int:
		b = append(b, 'i')
		return strconv.AppendInt(b, int64(t), 10)
	case float64:
		b = append(b, 'f')
		return strconv.AppendUint(b, math.Float64bits(t), 16)
	case bool:
		if t {
			return append(b, 'T')
		}
		return append(b, 'F')
	case time.Time:
		b = append(b, 't')
		return strconv.AppendInt(b, t.UnixNano(), 10)
	default:
		b = append(b, '?')
		return append(b, records.Format(records.Text, t)...)
	}
}

// appendKey encodes the named fields of r, in order, with a unit separator.
// The boolean is false when any field is absent from the record.
func appendKey(b []byte, r records.Record, fields []string) ([]byte, bool) {
	for i, f := range fields {
		v, ok := r[f]
		if !ok {
			return b, false
		}
		if i > 0 {
			b = append(b, 0x1f)
		}
		b = appendValue(b, v)
	}
	return b, true
}
