package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
)

func TestIngest_PermissiveAndOrdered(t *testing.T) {
	store := objectstore.NewMemory()
	store.PutString("bkt", "raw/products/", "")
	store.PutString("bkt", "raw/products/b.csv", "product_id,department_id,department,product_name\n2,x,dairy,Milk\n")
	store.PutString("bkt", "raw/products/a.csv", "\uFEFFproduct_id,department_id,department,product_name\n1,4,produce,Banana,extra\n3\n")
	store.PutString("bkt", "raw/products/notes.txt", "ignored")

	ds, err := schema.Lookup(schema.Products)
	require.NoError(t, err)

	f, err := Ingest(context.Background(), store, "bkt", "raw/products/", ds)
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())

	assert.Equal(t, int64(1), f.Rows[0]["product_id"])
	assert.Equal(t, int64(4), f.Rows[0]["department_id"])
	assert.Equal(t, "Banana", f.Rows[0]["product_name"])

	assert.Equal(t, int64(3), f.Rows[1]["product_id"])
	assert.Nil(t, f.Rows[1]["product_name"])

	assert.Equal(t, int64(2), f.Rows[2]["product_id"])
	assert.Nil(t, f.Rows[2]["department_id"], "unparseable int becomes null")
}

func TestIngest_DateColumn(t *testing.T) {
	store := objectstore.NewMemory()
	store.PutString("bkt", "raw/orders/o.csv",
		"order_num,order_id,user_id,order_timestamp,total_amount,date\n1,10,7,2024-01-05T10:00:00,12.5,2024-01-05\n")
	ds, _ := schema.Lookup(schema.Orders)

	f, err := Ingest(context.Background(), store, "bkt", "raw/orders/", ds)
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
	assert.Equal(t, 12.5, f.Rows[0]["total_amount"])
	assert.Equal(t, "2024-01-05T10:00:00", f.Rows[0]["order_timestamp"])
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), f.Rows[0]["date"])
}

func TestIngest_EmptyPrefix(t *testing.T) {
	ds, _ := schema.Lookup(schema.Orders)
	_, err := Ingest(context.Background(), objectstore.NewMemory(), "bkt", "raw/orders/", ds)
	assert.Error(t, err)
}

func TestIngest_MalformedCSV(t *testing.T) {
	store := objectstore.NewMemory()
	store.PutString("bkt", "raw/orders/o.csv", "order_num,order_id\n1,\"unterminated\n")
	ds, _ := schema.Lookup(schema.Orders)
	_, err := Ingest(context.Background(), store, "bkt", "raw/orders/", ds)
	assert.Error(t, err)
}
