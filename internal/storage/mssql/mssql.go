// Package mssql implements storage.TableStore on Microsoft SQL Server using
// the go-mssqldb bulk copy API. Partitioning is approximated with an index on
// the partition column; merges bulk-load a session temp table (#stage) and
// run a single MERGE.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// DefaultSchema is used when the "schema" option is not set.
const DefaultSchema = "dbo"

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return Open(ctx, cfg.DSN, cfg.Options.String("schema", DefaultSchema))
	})
}

// Store is an MSSQL-backed storage.TableStore.
type Store struct {
	db     *sql.DB
	schema string
}

var _ storage.TableStore = (*Store)(nil)

// Open validates dsn, connects and pings the server.
func Open(ctx context.Context, dsn, schema string) (*Store, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	if schema == "" {
		schema = DefaultSchema
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{db: db, schema: schema}, nil
}

func (s *Store) table(path string) string { return s.schema + "." + storage.TableName(path) }

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT OBJECT_ID(@p1, 'U')", ddl.MSSQL.FQN(s.table(path))).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("mssql: exists %s: %w", path, err)
	}
	return id.Valid, nil
}

func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	create, err := ddl.BuildCreateTableSQL(ddl.MSSQL, ddl.FromColumns(ddl.MSSQL, s.table(path), f.Columns, nil, false))
	if err != nil {
		return err
	}
	name := storage.TableName(path)
	index := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		ddl.MSSQL.Ident("ix_"+name+"_"+partitionColumn), ddl.MSSQL.FQN(s.table(path)), ddl.MSSQL.Ident(partitionColumn))

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("partition index %s: %w", path, err)
		}
		if err := bulkCopy(ctx, tx, s.table(path), f); err != nil {
			return fmt.Errorf("bulk %s: %w", path, err)
		}
		return nil
	})
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	const stage = "#stage"
	target := ddl.MSSQL.FQN(s.table(path))
	merge, err := ddl.BuildMergeSQL(ddl.MSSQL, target, stage, f.Names(), keyColumns)
	if err != nil {
		return storage.MergeResult{}, err
	}

	var res storage.MergeResult
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SELECT TOP 0 %s INTO %s FROM %s",
			strings.Join(ddl.MSSQL.Idents(f.Names()), ", "), stage, target)); err != nil {
			return fmt.Errorf("create stage: %w", err)
		}
		defer func() { _, _ = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+stage) }()

		if err := bulkCopy(ctx, tx, stage, f); err != nil {
			return fmt.Errorf("bulk stage: %w", err)
		}
		var matched int64
		if err := tx.QueryRowContext(ctx, ddl.BuildCountMatchedSQL(ddl.MSSQL, target, stage, keyColumns)).Scan(&matched); err != nil {
			return fmt.Errorf("count matched: %w", err)
		}
		if _, err := tx.ExecContext(ctx, merge); err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
		res = storage.MergeResult{Updated: matched, Inserted: int64(f.Len()) - matched}
		return nil
	})
	if err != nil {
		return storage.MergeResult{}, err
	}
	return res, nil
}

func (s *Store) Close() error { return s.db.Close() }

// bulkCopy streams f's rows into table with the TDS bulk-load protocol.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, f *records.Frame) error {
	if f.Len() == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, f.Names()...))
	if err != nil {
		return fmt.Errorf("prepare bulk copy: %w", err)
	}
	for i, r := range f.Rows {
		if _, err := stmt.ExecContext(ctx, f.Values(r)...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("bulk finalize: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != int64(f.Len()) {
		return fmt.Errorf("bulk copied %d of %d rows", n, f.Len())
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mssql: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql: commit: %w", err)
	}
	return nil
}
