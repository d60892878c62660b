package storage

import (
	"context"
	"fmt"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Target names a table and how rows in it are identified and laid out.
type Target struct {
	Path            string
	KeyColumns      []string
	PartitionColumn string
}

// Outcome says which branch Upsert took.
type Outcome string

const (
	Created Outcome = "created"
	Merged  Outcome = "merged"
)

// UpsertResult is returned by Upsert.
type UpsertResult struct {
	Outcome Outcome
	Rows    int
	MergeResult
}

// Upsert creates the table at t.Path from f when it does not exist yet and
// merges f into it otherwise. Errors are returned as-is for the caller to
// classify; nothing is retried.
func Upsert(ctx context.Context, s TableStore, t Target, f *records.Frame) (UpsertResult, error) {
	if len(t.KeyColumns) == 0 {
		return UpsertResult{}, fmt.Errorf("upsert %s: no key columns", t.Path)
	}
	need := append([]string{}, t.KeyColumns...)
	if t.PartitionColumn != "" {
		need = append(need, t.PartitionColumn)
	}
	if err := CheckFrame(f, need...); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: %w", t.Path, err)
	}

	exists, err := s.Exists(ctx, t.Path)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: exists: %w", t.Path, err)
	}
	if !exists {
		if err := s.CreatePartitioned(ctx, t.Path, f, t.PartitionColumn); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert %s: create: %w", t.Path, err)
		}
		return UpsertResult{
			Outcome:     Created,
			Rows:        f.Len(),
			MergeResult: MergeResult{Inserted: int64(f.Len())},
		}, nil
	}

	res, err := s.Merge(ctx, t.Path, f, t.KeyColumns)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: merge: %w", t.Path, err)
	}
	return UpsertResult{Outcome: Merged, Rows: f.Len(), MergeResult: res}, nil
}
