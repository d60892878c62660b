// Package object implements a data source over an objectstore key.
package object

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
)

// Source reads one object from a bucket.
type Source struct {
	store  objectstore.Store
	bucket string
	key    string
}

func New(store objectstore.Store, bucket, key string) *Source {
	return &Source{store: store, bucket: bucket, key: key}
}

func (s *Source) Name() string { return s.key }

func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.store.Get(ctx, s.bucket, s.key)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", s.key, err)
	}
	return rc, nil
}

// ListCSV returns a Source for every ".csv" object under prefix, in lexical
// key order. Folder markers and other extensions are skipped.
func ListCSV(ctx context.Context, store objectstore.Store, bucket, prefix string) ([]*Source, error) {
	objs, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	var out []*Source
	for _, o := range objs {
		if strings.HasSuffix(o.Key, "/") || !strings.HasSuffix(strings.ToLower(o.Key), ".csv") {
			continue
		}
		out = append(out, New(store, bucket, o.Key))
	}
	return out, nil
}
