package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func TestDatasets_OrderAndKeys(t *testing.T) {
	t.Parallel()

	ds := Datasets()
	require.Len(t, ds, 3)
	assert.Equal(t, []string{Orders, OrderItems, Products}, []string{ds[0].Name, ds[1].Name, ds[2].Name})

	assert.Equal(t, []string{"order_id"}, ds[0].NaturalKey)
	assert.Equal(t, []string{"order_id", "product_id"}, ds[1].NaturalKey)
	assert.Equal(t, []string{"product_id"}, ds[2].NaturalKey)

	assert.Equal(t, OrderDate, ds[0].PartitionColumn)
	assert.Equal(t, "department_id", ds[2].PartitionColumn)
	assert.False(t, ds[2].Enriched())
}

func TestDatasets_KeysAreRegisteredFields(t *testing.T) {
	t.Parallel()

	for _, d := range Datasets() {
		f := records.NewFrame(d.Columns())
		require.NoError(t, f.Has(d.NaturalKey...), d.Name)
		require.NoError(t, f.Has(d.RequiredColumns...), d.Name)
		for _, k := range d.NaturalKey {
			c, _ := f.Column(k)
			assert.False(t, c.Nullable, "%s.%s must be a required field", d.Name, k)
		}
	}
}

func TestDatasets_ReturnsCopy(t *testing.T) {
	t.Parallel()

	ds := Datasets()
	ds[0].Name = "mutated"
	d, err := Lookup(Orders)
	require.NoError(t, err)
	assert.Equal(t, Orders, d.Name)
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Lookup("customers")
	require.Error(t, err)
}
