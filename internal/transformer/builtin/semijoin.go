package builtin

import "github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"

// Set is a set of typed key values.
type Set map[string]struct{}

// Distinct collects the non-null values of column across rows.
func Distinct(rows []records.Record, column string) Set {
	s := make(Set, len(rows))
	var buf []byte
	for _, r := range rows {
		v := r[column]
		if v == nil {
			continue
		}
		buf = appendValue(buf[:0], v)
		s[string(buf)] = struct{}{}
	}
	return s
}

func (s Set) Contains(v any) bool {
	if v == nil {
		return false
	}
	_, ok := s[string(appendValue(nil, v))]
	return ok
}

func (s Set) Len() int { return len(s) }

// Membership answers whether a key value is present.
type Membership interface {
	Contains(v any) bool
}

// SemiJoin keeps records whose Key value is a member of Keys. A null key
// never matches, as in an SQL inner join.
type SemiJoin struct {
	Key  string
	Keys Membership
}

func (j SemiJoin) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		if j.Keys.Contains(r[j.Key]) {
			out = append(out, r)
		}
	}
	return out
}
