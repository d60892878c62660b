package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

var statusDataset = schema.Dataset{
	Name: "orders",
	Fields: []schema.Field{
		{Name: "order_id", Type: records.Int, Required: true},
		{Name: "status", Type: records.Text},
	},
	NaturalKey:      []string{"order_id"},
	RequiredColumns: []string{"order_id"},
}

func rowKey(f *records.Frame, r records.Record) string {
	parts := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		v := r[c.Name]
		if v == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = records.Format(c.Type, v)
	}
	return strings.Join(parts, "|")
}

func keySet(f *records.Frame) map[string]bool {
	out := map[string]bool{}
	for _, r := range f.Rows {
		out[rowKey(f, r)] = true
	}
	return out
}

func TestValidate_KeyDuplicateAndNullKey(t *testing.T) {
	raw := records.NewFrame(statusDataset.Columns())
	raw.Rows = []records.Record{
		{"order_id": int64(1), "status": "a"},
		{"order_id": int64(1), "status": "b"},
		{"order_id": nil, "status": "c"},
	}

	valid, invalid := Validate(raw, statusDataset)

	require.Equal(t, 1, valid.Len())
	assert.Equal(t, records.Record{"order_id": int64(1), "status": "a"}, valid.Rows[0])
	assert.Equal(t, []records.Record{
		{"order_id": int64(1), "status": "b"},
		{"order_id": nil, "status": "c"},
	}, invalid.Rows)
}

func TestValidate_ExactDuplicateIsAbsorbed(t *testing.T) {
	raw := records.NewFrame(statusDataset.Columns())
	raw.Rows = []records.Record{
		{"order_id": int64(1), "status": "a"},
		{"order_id": int64(1), "status": "a"},
	}
	valid, invalid := Validate(raw, statusDataset)
	assert.Equal(t, 1, valid.Len())
	assert.Equal(t, 0, invalid.Len())
}

func TestValidate_PartitionsRaw(t *testing.T) {
	raw := records.NewFrame(statusDataset.Columns())
	raw.Rows = []records.Record{
		{"order_id": int64(3), "status": "x"},
		{"order_id": int64(1), "status": nil},
		{"order_id": int64(3), "status": "y"},
		{"order_id": nil, "status": nil},
		{"order_id": nil, "status": "z"},
		{"order_id": int64(2), "status": "x"},
		{"order_id": int64(3), "status": "x"},
	}
	valid, invalid := Validate(raw, statusDataset)

	v, inv := keySet(valid), keySet(invalid)
	for k := range v {
		assert.False(t, inv[k], "row %s is both valid and invalid", k)
	}
	for _, r := range raw.Rows {
		k := rowKey(raw, r)
		assert.True(t, v[k] || inv[k], "row %s lost", k)
	}

	seen := map[int64]bool{}
	for _, r := range valid.Rows {
		id := r["order_id"].(int64)
		assert.False(t, seen[id], "duplicate key %d", id)
		seen[id] = true
	}
	assert.Len(t, invalid.Rows, len(inv), "invalid rows are distinct")
}
