package pipeline

import (
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer/builtin"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Validate splits raw into valid and invalid rows.
//
// Valid rows are the first occurrence of each natural key that has every
// required column set. Invalid rows are the distinct raw rows that are not
// valid, compared over all columns. A row sharing a key with a kept row but
// differing elsewhere is therefore invalid, while an exact copy of a kept
// row disappears.
func Validate(raw *records.Frame, ds schema.Dataset) (valid, invalid *records.Frame) {
	chain := transformer.Chain{
		builtin.DeDup{Keys: ds.NaturalKey, Policy: builtin.PolicyKeepFirst},
		builtin.Require{Fields: ds.RequiredColumns},
	}
	kept := chain.Apply(raw.Rows)
	rejected := builtin.Subtract{Columns: raw.Names(), Remove: kept}.Apply(raw.Rows)
	return raw.WithRows(kept), raw.WithRows(rejected)
}
