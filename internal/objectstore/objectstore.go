// Package objectstore abstracts the bucket/key storage the pipeline reads raw
// extracts from and writes quarantine files and run manifests to.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("objectstore: object not found")

// Object describes one listed key.
type Object struct {
	Key  string
	Size int64
}

// Store is the minimal object storage surface used by the job, the uploader
// and the relocation handler.
type Store interface {
	// List returns every object whose key starts with prefix, in lexical key
	// order. Implementations page through the listing internally.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, body io.Reader) error
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
}

// Options selects and configures a Store implementation.
type Options struct {
	Kind           string // "s3" | "local" | "memory"
	Region         string
	Endpoint       string
	ForcePathStyle bool
	Root           string // local root directory
}

// Open builds a Store from opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Kind) {
	case "", "s3":
		return NewS3(opts)
	case "local":
		if opts.Root == "" {
			return nil, fmt.Errorf("objectstore: local store needs a root directory")
		}
		return NewLocal(opts.Root), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("objectstore: unknown kind %q", opts.Kind)
	}
}

// DeletePrefix removes every object under prefix and returns how many were
// deleted.
func DeletePrefix(ctx context.Context, s Store, bucket, prefix string) (int, error) {
	objs, err := s.List(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}
	for i, o := range objs {
		if err := s.Delete(ctx, bucket, o.Key); err != nil {
			return i, fmt.Errorf("delete %s: %w", o.Key, err)
		}
	}
	return len(objs), nil
}

// Dir normalises a prefix to end in exactly one slash.
func Dir(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/"
}

func sortObjects(objs []Object) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
}
