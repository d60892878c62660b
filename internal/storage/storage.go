// Package storage contains the table-store contract and the merge-upsert
// orchestration on top of it. Backends register themselves in init and are
// selected by kind at runtime, so callers only depend on this package.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// MergeResult reports what a merge changed.
type MergeResult struct {
	Inserted int64
	Updated  int64
}

// TableStore is a transactional, partitioned table format addressed by path
// (e.g. "processed/orders"). Each mutating call must be atomic: either every
// row is visible afterwards or none is.
type TableStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	// CreatePartitioned creates the table from f's columns, partitioned by
	// partitionColumn, and writes f's rows.
	CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error
	// Merge upserts f's rows: rows matching on keyColumns overwrite every
	// column; the rest are inserted. Target-only rows are untouched.
	Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (MergeResult, error)
	Close() error
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName maps a table path to a SQL-safe table name: the last path
// segment, lowercased, with every run of other characters replaced by "_".
func TableName(path string) string {
	p := strings.TrimRight(path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	name := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(p), "_"), "_")
	if name == "" {
		return "t"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}

// CheckFrame verifies that every named column exists in f.
func CheckFrame(f *records.Frame, names ...string) error {
	if f == nil {
		return fmt.Errorf("storage: nil frame")
	}
	if len(f.Columns) == 0 {
		return fmt.Errorf("storage: frame has no columns")
	}
	return f.Has(names...)
}
