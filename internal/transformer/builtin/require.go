// Package builtin contains simple, reusable transformers used in the ETL.
package builtin

import "github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"

// Require removes any record missing a value for any of the specified fields.
type Require struct {
	Fields []string
}

// Apply returns a new slice containing only records that have all required
// fields present and non-null. Empty strings count as null; the CSV reader
// already maps empty cells to nil.
func (r Require) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		ok := true
		for _, f := range r.Fields {
			v, exists := rec[f]
			if !exists || v == nil || v == "" {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}
