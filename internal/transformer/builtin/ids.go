package builtin

import (
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/bitmap"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// MaxDenseID is the largest key IDs stores in a bitmap (2 MiB of words).
const MaxDenseID = 1 << 24

// IDs collects the non-null values of column. When every value is an int64
// in [0, MaxDenseID] the result is bitmap-backed; otherwise it is a Set.
func IDs(rows []records.Record, column string) Membership {
	maxID := int64(-1)
	for _, r := range rows {
		switch v := r[column].(type) {
		case nil:
		case int64:
			if v < 0 || v > MaxDenseID {
				return Distinct(rows, column)
			}
			maxID = max(maxID, v)
		default:
			return Distinct(rows, column)
		}
	}
	b := bitmap.New(maxID)
	for _, r := range rows {
		if v, ok := r[column].(int64); ok {
			b.Add(v)
		}
	}
	return denseIDs{b}
}

type denseIDs struct{ *bitmap.Bitmap }

func (d denseIDs) Contains(v any) bool {
	id, ok := v.(int64)
	return ok && d.Has(id)
}
