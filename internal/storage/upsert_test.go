package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/memory"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

var orderCols = []records.Column{
	{Name: "order_id", Type: records.Int},
	{Name: "status", Type: records.Text, Nullable: true},
	{Name: "order_date", Type: records.Date, Nullable: true},
}

func orders(ids ...int64) *records.Frame {
	f := records.NewFrame(orderCols)
	for _, id := range ids {
		f.Rows = append(f.Rows, records.Record{"order_id": id, "status": "v2", "order_date": nil})
	}
	return f
}

var target = storage.Target{Path: "processed/orders", KeyColumns: []string{"order_id"}, PartitionColumn: "order_date"}

func TestUpsertCreateThenMerge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()

	res, err := storage.Upsert(ctx, s, target, orders(1, 2))
	require.NoError(t, err)
	assert.Equal(t, storage.Created, res.Outcome)
	assert.EqualValues(t, 2, res.Inserted)

	res, err = storage.Upsert(ctx, s, target, orders(2, 3))
	require.NoError(t, err)
	assert.Equal(t, storage.Merged, res.Outcome)
	assert.Equal(t, storage.MergeResult{Inserted: 1, Updated: 1}, res.MergeResult)

	rows := s.Rows("processed/orders")
	require.Len(t, rows, 3)
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, want, rows[i]["order_id"])
	}
}

func TestUpsertIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()
	_, err := storage.Upsert(ctx, s, target, orders(1, 2))
	require.NoError(t, err)
	before := s.Rows("processed/orders")

	res, err := storage.Upsert(ctx, s, target, orders(1, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Inserted)
	assert.Equal(t, before, s.Rows("processed/orders"))
}

func TestUpsertValidatesFrame(t *testing.T) {
	t.Parallel()

	_, err := storage.Upsert(context.Background(), memory.New(),
		storage.Target{Path: "p/x", KeyColumns: []string{"missing"}, PartitionColumn: "order_date"}, orders(1))
	assert.Error(t, err)

	_, err = storage.Upsert(context.Background(), memory.New(), storage.Target{Path: "p/x"}, orders(1))
	assert.Error(t, err)
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) Exists(context.Context, string) (bool, error) { return false, f.err }

func TestUpsertWrapsStoreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("catalog unavailable")
	_, err := storage.Upsert(context.Background(), failingStore{Store: memory.New(), err: boom}, target, orders(1))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "processed/orders")
}
