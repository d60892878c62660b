// Package builtin contains reusable ETL transformers.
//
// DeDup collapses duplicate records by a configured key and chooses a winner
// according to a policy:
//
//   - "keep-first"   : keep the earliest occurrence in the batch (default)
//   - "keep-last"    : keep the latest occurrence in the batch
//   - "most-complete": keep the record that has the most non-null fields;
//     ties break by "keep-first"
//
// Records with a null key value are grouped together like any other value,
// so a batch with several null-keyed rows keeps exactly one of them. Run
// Require afterwards to drop it.
package builtin

import (
	"sort"
	"strings"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

const (
	PolicyKeepFirst    = "keep-first"
	PolicyKeepLast     = "keep-last"
	PolicyMostComplete = "most-complete"
)

// DeDup implements a configurable, in-memory de-duplication policy.
type DeDup struct {
	// Keys are the field names that form the business key, e.g. ["order_id"].
	Keys []string

	// Policy selects the winner among duplicates.
	Policy string
}

// Apply returns a new slice containing one record per key, in the input
// order of the winners. Records missing a key field entirely pass through
// after the winners.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return append([]records.Record(nil), in...)
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = PolicyKeepFirst
	}

	type slot struct {
		index int
		score int
	}

	winners := make(map[string]slot, len(in))
	var passthrough []int
	var buf []byte

	for i, r := range in {
		var ok bool
		buf, ok = appendKey(buf[:0], r, d.Keys)
		if !ok {
			passthrough = append(passthrough, i)
			continue
		}
		key := string(buf)
		prev, exists := winners[key]
		switch policy {
		case PolicyKeepLast:
			winners[key] = slot{index: i}
		case PolicyMostComplete:
			s := slot{index: i, score: completeness(r)}
			if !exists || s.score > prev.score {
				winners[key] = s
			}
		default:
			if !exists {
				winners[key] = slot{index: i}
			}
		}
	}

	idx := make([]int, 0, len(winners)+len(passthrough))
	for _, s := range winners {
		idx = append(idx, s.index)
	}
	sort.Ints(idx)
	idx = append(idx, passthrough...)

	out := make([]records.Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, in[i])
	}
	return out
}

func completeness(r records.Record) int {
	n := 0
	for _, v := range r {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		n++
	}
	return n
}
