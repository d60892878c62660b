// Package mysql implements storage.TableStore on MySQL with
// github.com/go-sql-driver/mysql.
//
// MySQL requires every unique key of a partitioned table to include the
// partition column, which natural keys do not, so a partitioned table is a
// plain table with an index on the partition column. Merges count the
// existing keys and then run multi-row INSERT ... ON DUPLICATE KEY UPDATE
// batches in one transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// maxPlaceholders stays under the protocol limit of 65535 per statement.
const (
	maxPlaceholders = 60000
	maxBatchRows    = 1000
)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Store is a MySQL-backed storage.TableStore.
type Store struct {
	db *sql.DB
}

var _ storage.TableStore = (*Store)(nil)

// ParseDSN validates dsn, e.g. "user:pass@tcp(host:3306)/lake", and forces
// UTC time parsing.
func ParseDSN(dsn string) (*gomysql.Config, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql dsn: must not be empty")
	}
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("mysql dsn: no database name")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// Open connects to the database named in dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
		storage.TableName(path)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("mysql: exists %s: %w", path, err)
	}
	return n > 0, nil
}

// CreatePartitioned creates the table and its partition index, then inserts
// f in one transaction. DDL commits implicitly in MySQL, so a failed insert
// drops the table again.
func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	table := storage.TableName(path)
	t := ddl.MySQL.Ident(table)
	create, err := ddl.BuildCreateTableSQL(ddl.MySQL, ddl.FromColumns(ddl.MySQL, table, f.Columns, nil, false))
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("mysql: create %s: %w", table, err)
	}
	index := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		ddl.MySQL.Ident(PartitionIndex(table, partitionColumn)), t, ddl.MySQL.Ident(partitionColumn))
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		s.drop(table)
		return fmt.Errorf("mysql: partition index %s: %w", table, err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		return insertBatches(ctx, tx, t, f, nil)
	})
	if err != nil {
		s.drop(table)
		return err
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	if len(keyColumns) == 0 {
		return storage.MergeResult{}, fmt.Errorf("mysql: merge %s: no key columns", path)
	}
	table := storage.TableName(path)
	t := ddl.MySQL.Ident(table)
	if err := s.ensureKey(ctx, table, keyColumns); err != nil {
		return storage.MergeResult{}, err
	}

	var res storage.MergeResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		matched, err := countExisting(ctx, tx, t, f, keyColumns)
		if err != nil {
			return err
		}
		if err := insertBatches(ctx, tx, t, f, keyColumns); err != nil {
			return err
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

// PartitionIndex names the index standing in for table partitioning.
func PartitionIndex(table, column string) string { return "ix_" + table + "_" + column }

// KeyIndex names the unique index ON DUPLICATE KEY resolves against.
func KeyIndex(table string) string { return "ux_" + table + "_key" }

func (s *Store) ensureKey(ctx context.Context, table string, keys []string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.statistics
		  WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`,
		table, KeyIndex(table)).Scan(&n)
	if err != nil {
		return fmt.Errorf("mysql: key index lookup %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	q := fmt.Sprintf("ALTER TABLE %s ADD UNIQUE INDEX %s (%s)",
		ddl.MySQL.Ident(table), ddl.MySQL.Ident(KeyIndex(table)), strings.Join(ddl.MySQL.Idents(keys), ", "))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("mysql: key index %s: %w", table, err)
	}
	return nil
}

// BatchRows is how many rows of width cols go into one statement.
func BatchRows(cols int) int {
	if cols <= 0 {
		return maxBatchRows
	}
	return max(1, min(maxBatchRows, maxPlaceholders/cols))
}

func countExisting(ctx context.Context, tx *sql.Tx, target string, f *records.Frame, keys []string) (int64, error) {
	var total int64
	step := BatchRows(len(keys))
	for lo := 0; lo < f.Len(); lo += step {
		hi := min(lo+step, f.Len())
		args := make([]any, 0, (hi-lo)*len(keys))
		for _, r := range f.Rows[lo:hi] {
			args = append(args, values(r, keys)...)
		}
		var n int64
		if err := tx.QueryRowContext(ctx, ddl.BuildCountKeysSQL(ddl.MySQL, target, keys, hi-lo), args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("count existing rows %d-%d: %w", lo, hi, err)
		}
		total += n
	}
	return total, nil
}

// insertBatches writes f in multi-row statements. With keys, duplicates
// overwrite the existing row.
func insertBatches(ctx context.Context, tx *sql.Tx, target string, f *records.Frame, keys []string) error {
	cols := f.Names()
	step := BatchRows(len(cols))
	for lo := 0; lo < f.Len(); lo += step {
		hi := min(lo+step, f.Len())
		var q string
		var err error
		if keys == nil {
			q, err = insertSQL(target, cols, hi-lo), nil
		} else {
			q, err = ddl.BuildInsertOnDuplicateSQL(ddl.MySQL, target, cols, keys, hi-lo)
		}
		if err != nil {
			return err
		}
		args := make([]any, 0, (hi-lo)*len(cols))
		for _, r := range f.Rows[lo:hi] {
			args = append(args, values(r, cols)...)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", lo, hi, err)
		}
	}
	return nil
}

func insertSQL(target string, cols []string, rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		target, strings.Join(ddl.MySQL.Idents(cols), ", "), strings.Join(tuples, ", "))
}

func values(r records.Record, names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = r[n]
	}
	return out
}

func (s *Store) drop(table string) {
	_, _ = s.db.Exec("DROP TABLE IF EXISTS " + ddl.MySQL.Ident(table))
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mysql: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	return nil
}
