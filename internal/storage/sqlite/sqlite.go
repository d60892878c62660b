// Package sqlite implements storage.TableStore on SQLite using database/sql.
// SQLite has no table partitioning and no MERGE, so a partitioned table is a
// plain table with an index on the partition column, and merges are done row
// by row inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Store is a SQLite-backed storage.TableStore.
type Store struct {
	db *sql.DB
}

var _ storage.TableStore = (*Store)(nil)

// Open connects to the database at dsn, e.g. "lake.db" or ":memory:".
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; also keeps ":memory:" to a single database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		storage.TableName(path)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: exists %s: %w", path, err)
	}
	return n > 0, nil
}

func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	table := storage.TableName(path)
	create, err := ddl.BuildCreateTableSQL(ddl.SQLite, ddl.FromColumns(ddl.SQLite, table, f.Columns, nil, false))
	if err != nil {
		return err
	}
	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		ddl.SQLite.Ident(table+"_"+partitionColumn+"_part"), ddl.SQLite.Ident(table), ddl.SQLite.Ident(partitionColumn))

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("partition index %s: %w", table, err)
		}
		ins, err := tx.PrepareContext(ctx, insertSQL(table, f.Names()))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer ins.Close()
		for i, r := range f.Rows {
			if _, err := ins.ExecContext(ctx, args(f, r, nil)...); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	if len(keyColumns) == 0 {
		return storage.MergeResult{}, fmt.Errorf("sqlite: merge %s: no key columns", path)
	}
	table := storage.TableName(path)
	t := ddl.SQLite.Ident(table)

	isKey := make(map[string]bool, len(keyColumns))
	for _, k := range keyColumns {
		isKey[k] = true
	}
	var nonKey []string
	for _, n := range f.Names() {
		if !isKey[n] {
			nonKey = append(nonKey, n)
		}
	}
	where := make([]string, len(keyColumns))
	for i, k := range keyColumns {
		where[i] = ddl.SQLite.Ident(k) + " = ?"
	}
	whereSQL := strings.Join(where, " AND ")
	set := make([]string, len(nonKey))
	for i, c := range nonKey {
		set[i] = ddl.SQLite.Ident(c) + " = ?"
	}

	var res storage.MergeResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		uniq := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			ddl.SQLite.Ident(table+"_key"), t, strings.Join(ddl.SQLite.Idents(keyColumns), ", "))
		if _, err := tx.ExecContext(ctx, uniq); err != nil {
			return fmt.Errorf("key index %s: %w", table, err)
		}
		exists, err := tx.PrepareContext(ctx, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", t, whereSQL))
		if err != nil {
			return fmt.Errorf("prepare lookup: %w", err)
		}
		defer exists.Close()
		ins, err := tx.PrepareContext(ctx, insertSQL(table, f.Names()))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer ins.Close()
		var upd *sql.Stmt
		if len(set) > 0 {
			upd, err = tx.PrepareContext(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE %s", t, strings.Join(set, ", "), whereSQL))
			if err != nil {
				return fmt.Errorf("prepare update: %w", err)
			}
			defer upd.Close()
		}

		for i, r := range f.Rows {
			keyArgs := args(f, r, keyColumns)
			var found bool
			if err := exists.QueryRowContext(ctx, keyArgs...).Scan(&found); err != nil {
				return fmt.Errorf("lookup row %d: %w", i, err)
			}
			if !found {
				if _, err := ins.ExecContext(ctx, args(f, r, nil)...); err != nil {
					return fmt.Errorf("insert row %d: %w", i, err)
				}
				res.Inserted++
				continue
			}
			if upd != nil {
				if _, err := upd.ExecContext(ctx, append(args(f, r, nonKey), keyArgs...)...); err != nil {
					return fmt.Errorf("update row %d: %w", i, err)
				}
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return storage.MergeResult{}, err
	}
	return res, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func insertSQL(table string, cols []string) string {
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.SQLite.Ident(table), strings.Join(ddl.SQLite.Idents(cols), ", "), ph)
}

// args returns r's values for names (all of f's columns when names is nil).
// Time values are stored as text in their canonical layout.
func args(f *records.Frame, r records.Record, names []string) []any {
	if names == nil {
		names = f.Names()
	}
	out := make([]any, len(names))
	for i, n := range names {
		v := r[n]
		if t, ok := v.(time.Time); ok {
			col, _ := f.Column(n)
			v = records.Format(col.Type, t)
		}
		out[i] = v
	}
	return out
}
