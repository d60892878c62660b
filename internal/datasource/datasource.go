// Package datasource defines where raw bytes come from. The pipeline reads
// raw extracts from object storage; the uploader reads workbooks and CSV
// files from the local disk.
package datasource

import (
	"context"
	"io"
)

// Source is a named, openable stream of bytes.
type Source interface {
	// Name identifies the source in logs and errors (a key or a path).
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
