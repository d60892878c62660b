// Package transformer defines the record-level transform contract used by the
// validation, referential-integrity and enrichment stages.
package transformer

import "github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"

// Transformer maps a slice of records to a new slice. Implementations must not
// modify the input slice itself, since callers keep using it (e.g. the raw
// set that rejected rows are computed from).
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Func adapts a plain function to the Transformer interface.
type Func func([]records.Record) []records.Record

func (f Func) Apply(in []records.Record) []records.Record { return f(in) }
