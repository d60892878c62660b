package transformer

import (
	"reflect"
	"testing"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

type identityTransformer struct{}

func (identityTransformer) Apply(in []records.Record) []records.Record { return in }

// dropKey filters records carrying key into a fresh slice.
type dropKey string

func (k dropKey) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		if _, ok := r[string(k)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func TestChainAppliesInOrder(t *testing.T) {
	t.Parallel()

	in := []records.Record{
		{"id": int64(1)},
		{"id": int64(2), "bad": true},
		{"id": int64(3)},
	}
	c := Chain{identityTransformer{}, dropKey("bad")}
	got := c.Apply(in)
	want := []records.Record{{"id": int64(1)}, {"id": int64(3)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chain.Apply: got %#v want %#v", got, want)
	}
	if len(in) != 3 {
		t.Fatalf("input slice changed length: %d", len(in))
	}
}

func TestEmptyChainIsIdentity(t *testing.T) {
	t.Parallel()

	in := []records.Record{{"id": int64(1)}}
	if got := (Chain{}).Apply(in); !reflect.DeepEqual(got, in) {
		t.Fatalf("empty chain: got %#v want %#v", got, in)
	}
}

func TestFuncAdapter(t *testing.T) {
	t.Parallel()

	calls := 0
	f := Func(func(in []records.Record) []records.Record {
		calls++
		return in[:1]
	})
	got := Chain{f}.Apply([]records.Record{{"a": 1}, {"a": 2}})
	if len(got) != 1 || calls != 1 {
		t.Fatalf("Func: len=%d calls=%d", len(got), calls)
	}
}
