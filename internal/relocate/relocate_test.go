package relocate

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
)

func TestMove_MissingParameters(t *testing.T) {
	m := Mover{Store: objectstore.NewMemory()}
	for _, req := range []Request{
		{SourcePrefix: "raw/", DestinationPrefix: "archive/"},
		{Bucket: "b", DestinationPrefix: "archive/"},
		{Bucket: "b", SourcePrefix: "raw/"},
	} {
		_, err := m.Move(context.Background(), req)
		assert.ErrorIs(t, err, ErrMissingParameters)
	}
	assert.Equal(t, "missing required parameters: bucket, source_prefix, destination_prefix", ErrMissingParameters.Error())
}

func TestMove_Empty(t *testing.T) {
	m := Mover{Store: objectstore.NewMemory()}
	res, err := m.Move(context.Background(), Request{Bucket: "b", SourcePrefix: "raw/", DestinationPrefix: "archive/"})
	require.NoError(t, err)
	assert.Equal(t, Result{Moved: 0, Message: "No files to move in raw/"}, res)
}

func TestMove_MovesAndSkipsMarker(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemory()
	store.PutString("b", "raw/", "")
	store.PutString("b", "raw/orders/a.csv", "A")
	store.PutString("b", "raw/products/p.csv", "P")
	store.PutString("b", "processed/keep", "K")

	res, err := Mover{Store: store}.Move(ctx, Request{Bucket: "b", SourcePrefix: "raw/", DestinationPrefix: "archive/invalid-data/"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, "Successfully moved 2 files from raw/ to archive/invalid-data/", res.Message)

	assert.Equal(t, "A", string(store.Bytes("b", "archive/invalid-data/orders/a.csv")))
	assert.Equal(t, "P", string(store.Bytes("b", "archive/invalid-data/products/p.csv")))

	_, err = store.Get(ctx, "b", "raw/orders/a.csv")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	left, err := store.List(ctx, "b", "raw/")
	require.NoError(t, err)
	require.Len(t, left, 1, "folder marker stays")
	assert.Equal(t, "raw/", left[0].Key)
}

type failingCopy struct {
	*objectstore.Memory
}

func (failingCopy) Copy(context.Context, string, string, string) error { return errors.New("denied") }

func TestMove_CopyErrorIsReturned(t *testing.T) {
	store := objectstore.NewMemory()
	store.PutString("b", "raw/a.csv", "A")
	_, err := Mover{Store: failingCopy{store}}.Move(context.Background(), Request{Bucket: "b", SourcePrefix: "raw/", DestinationPrefix: "archive/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")

	rc, err := store.Get(context.Background(), "b", "raw/a.csv")
	require.NoError(t, err, "source kept on failed copy")
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "A", string(b))
}

func TestDestination(t *testing.T) {
	req := Request{SourcePrefix: "raw/", DestinationPrefix: "archive/"}
	assert.Equal(t, "archive/orders/x.csv", Destination(req, "raw/orders/x.csv"))
}
