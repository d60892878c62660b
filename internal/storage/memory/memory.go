// Package memory is an in-process TableStore. It keeps each table as an
// ordered slice of rows plus a key index, and is used for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func init() {
	storage.Register("memory", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return New(), nil
	})
}

type table struct {
	columns   []records.Column
	partition string
	rows      []records.Record
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool
}

var _ storage.TableStore = (*Store)(nil)

func New() *Store { return &Store{tables: map[string]*table{}} }

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, fmt.Errorf("memory: store closed")
	}
	_, ok := s.tables[storage.TableName(path)]
	return ok, nil
}

func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := storage.TableName(path)
	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("memory: table %s already exists", name)
	}
	t := &table{columns: append([]records.Column(nil), f.Columns...), partition: partitionColumn}
	for _, r := range f.Rows {
		t.rows = append(t.rows, project(t.columns, r))
	}
	s.tables[name] = t
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[storage.TableName(path)]
	if !ok {
		return storage.MergeResult{}, fmt.Errorf("memory: table %s does not exist", path)
	}

	index := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		index[keyOf(r, keyColumns)] = i
	}
	var res storage.MergeResult
	for _, r := range f.Rows {
		row := project(t.columns, r)
		k := keyOf(row, keyColumns)
		if i, ok := index[k]; ok {
			t.rows[i] = row
			res.Updated++
			continue
		}
		index[k] = len(t.rows)
		t.rows = append(t.rows, row)
		res.Inserted++
	}
	return res, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Rows returns a copy of the table's rows in insertion order.
func (s *Store) Rows(path string) []records.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[storage.TableName(path)]
	if !ok {
		return nil
	}
	out := make([]records.Record, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// Partition returns the partition column the table was created with.
func (s *Store) Partition(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[storage.TableName(path)]; ok {
		return t.partition
	}
	return ""
}

func project(cols []records.Column, r records.Record) records.Record {
	out := make(records.Record, len(cols))
	for _, c := range cols {
		out[c.Name] = r[c.Name]
	}
	return out
}

func keyOf(r records.Record, keys []string) string {
	var b []byte
	for _, k := range keys {
		b = append(b, records.Format(records.Text, r[k])...)
		b = append(b, 0x1f)
	}
	return string(b)
}
