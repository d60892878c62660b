package builtin

import (
	"github.com/zeebo/xxh3"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Subtract is a whole-row set difference: Apply returns the distinct records
// of its input that have no exact match in Remove, comparing the values of
// Columns. Output keeps first-occurrence order.
//
// A record that shares a key with a kept record but differs in any other
// column is not in Remove and therefore survives, while exact copies of a
// kept record are absorbed.
type Subtract struct {
	Columns []string
	Remove  []records.Record
}

func (s Subtract) Apply(in []records.Record) []records.Record {
	removed := newRowSet(len(s.Remove))
	var buf []byte
	for _, r := range s.Remove {
		buf = s.encode(buf[:0], r)
		removed.add(buf)
	}

	seen := newRowSet(len(in))
	out := make([]records.Record, 0)
	for _, r := range in {
		buf = s.encode(buf[:0], r)
		if removed.has(buf) || !seen.add(buf) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// encode treats an absent column as null so sparse records compare equal to
// records that carry an explicit nil.
func (s Subtract) encode(b []byte, r records.Record) []byte {
	for i, c := range s.Columns {
		if i > 0 {
			b = append(b, 0x1f)
		}
		b = appendValue(b, r[c])
	}
	return b
}

// rowSet buckets encoded rows by xxh3 hash and confirms membership with an
// exact byte comparison.
type rowSet map[uint64][]string

func newRowSet(n int) rowSet { return make(rowSet, n) }

func (s rowSet) has(b []byte) bool {
	for _, e := range s[xxh3.Hash(b)] {
		if e == string(b) {
			return true
		}
	}
	return false
}

// add reports whether b was newly inserted.
func (s rowSet) add(b []byte) bool {
	h := xxh3.Hash(b)
	for _, e := range s[h] {
		if e == string(b) {
			return false
		}
	}
	s[h] = append(s[h], string(b))
	return true
}
