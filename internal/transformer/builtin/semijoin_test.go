package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func TestDistinctSkipsNulls(t *testing.T) {
	t.Parallel()

	rows := []records.Record{
		{"order_id": int64(1)},
		{"order_id": int64(1)},
		{"order_id": nil},
		{"order_id": int64(2)},
	}
	s := Distinct(rows, "order_id")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(int64(1)))
	assert.False(t, s.Contains(nil))
	assert.False(t, s.Contains("1"))
}

func TestSemiJoin(t *testing.T) {
	t.Parallel()

	orders := Distinct([]records.Record{{"order_id": int64(1)}, {"order_id": int64(2)}}, "order_id")
	items := []records.Record{
		{"order_id": int64(1), "product_id": int64(10)},
		{"order_id": int64(3), "product_id": int64(10)},
		{"order_id": nil, "product_id": int64(10)},
		{"order_id": int64(2), "product_id": int64(11)},
	}
	got := SemiJoin{Key: "order_id", Keys: orders}.Apply(items)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0]["order_id"])
	assert.Equal(t, int64(2), got[1]["order_id"])
}

func TestSemiJoinEmptySet(t *testing.T) {
	t.Parallel()

	got := SemiJoin{Key: "order_id", Keys: Set{}}.Apply([]records.Record{{"order_id": int64(1)}})
	assert.Empty(t, got)
}
