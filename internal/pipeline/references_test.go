package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func idFrame(name string, ids ...any) *records.Frame {
	f := records.NewFrame([]records.Column{{Name: name, Type: records.Int}})
	for _, id := range ids {
		f.Rows = append(f.Rows, records.Record{name: id})
	}
	return f
}

func TestCheckReferences(t *testing.T) {
	orders := idFrame(OrderIDColumn, int64(1), int64(2))
	products := idFrame(ProductIDColumn, int64(10), int64(20))
	items := records.NewFrame([]records.Column{
		{Name: "id", Type: records.Int},
		{Name: OrderIDColumn, Type: records.Int},
		{Name: ProductIDColumn, Type: records.Int},
	})
	items.Rows = []records.Record{
		{"id": int64(1), OrderIDColumn: int64(1), ProductIDColumn: int64(10)},
		{"id": int64(2), OrderIDColumn: int64(3), ProductIDColumn: int64(10)},
		{"id": int64(3), OrderIDColumn: int64(2), ProductIDColumn: int64(30)},
		{"id": int64(4), OrderIDColumn: nil, ProductIDColumn: int64(20)},
		{"id": int64(5), OrderIDColumn: int64(2), ProductIDColumn: int64(20)},
	}

	kept, dropped, err := CheckReferences(orders, products, items)
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Equal(t, 2, kept.Len())

	oids := map[any]bool{int64(1): true, int64(2): true}
	pids := map[any]bool{int64(10): true, int64(20): true}
	for _, r := range kept.Rows {
		assert.True(t, oids[r[OrderIDColumn]])
		assert.True(t, pids[r[ProductIDColumn]])
	}
	assert.Equal(t, items.Columns, kept.Columns)
}

func TestCheckReferences_MissingColumn(t *testing.T) {
	orders := idFrame("id", int64(1))
	_, _, err := CheckReferences(orders, idFrame(ProductIDColumn), idFrame(OrderIDColumn))
	assert.Error(t, err)
}
