// Package postgres implements storage.TableStore on Postgres using pgx v5.
// Tables are LIST-partitioned on the partition column with one partition per
// value plus a DEFAULT partition. Rows are loaded with COPY; merges COPY into
// a transaction-scoped stage table and run a single MERGE (Postgres 15+).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// DefaultSchema is used when the "schema" option is not set.
const DefaultSchema = "public"

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return Open(ctx, cfg.DSN, cfg.Options.String("schema", DefaultSchema))
	})
}

// Store is a Postgres-backed storage.TableStore.
type Store struct {
	pool   *pgxpool.Pool
	schema string
}

var _ storage.TableStore = (*Store)(nil)

// Open creates a connection pool for dsn. Tables are created in schema.
func Open(ctx context.Context, dsn, schema string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if schema == "" {
		schema = DefaultSchema
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, schema: schema}, nil
}

func (s *Store) table(path string) string { return s.schema + "." + storage.TableName(path) }

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ddl.Postgres.FQN(s.table(path))).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("postgres: exists %s: %w", path, err)
	}
	return ok, nil
}

func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	td := ddl.FromColumns(ddl.Postgres, s.table(path), f.Columns, nil, false)
	td.Suffix = fmt.Sprintf("PARTITION BY LIST (%s)", ddl.Postgres.Ident(partitionColumn))
	create, err := ddl.BuildCreateTableSQL(ddl.Postgres, td)
	if err != nil {
		return err
	}
	parent := ddl.Postgres.FQN(s.table(path))
	def := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s DEFAULT",
		ddl.Postgres.FQN(s.schema+"."+storage.TableName(path)+"_default"), parent)

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := tx.Exec(ctx, def); err != nil {
			return fmt.Errorf("default partition %s: %w", path, err)
		}
		if err := s.ensurePartitions(ctx, tx, path, f, partitionColumn); err != nil {
			return err
		}
		if err := copyRows(ctx, tx, pgx.Identifier{s.schema, storage.TableName(path)}, f); err != nil {
			return fmt.Errorf("copy %s: %w", path, err)
		}
		return nil
	})
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	target := ddl.Postgres.FQN(s.table(path))
	stage := "stage_" + storage.TableName(path)
	merge, err := ddl.BuildMergeSQL(ddl.Postgres, target, ddl.Postgres.Ident(stage), f.Names(), keyColumns)
	if err != nil {
		return storage.MergeResult{}, err
	}

	var res storage.MergeResult
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", ddl.Postgres.Ident(stage), target)); err != nil {
			return fmt.Errorf("create stage: %w", err)
		}
		if err := copyRows(ctx, tx, pgx.Identifier{stage}, f); err != nil {
			return fmt.Errorf("copy stage: %w", err)
		}
		if part := partitionColumnOf(ctx, tx, s.schema, storage.TableName(path)); part != "" {
			if err := s.ensurePartitions(ctx, tx, path, f, part); err != nil {
				return err
			}
		}
		var matched int64
		if err := tx.QueryRow(ctx, ddl.BuildCountMatchedSQL(ddl.Postgres, target, ddl.Postgres.Ident(stage), keyColumns)).Scan(&matched); err != nil {
			return fmt.Errorf("count matched: %w", err)
		}
		if _, err := tx.Exec(ctx, merge); err != nil {
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

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ensurePartitions creates a LIST partition for every distinct non-null value
// of column in f. Rows whose value already sits in the DEFAULT partition are
// left there.
func (s *Store) ensurePartitions(ctx context.Context, tx pgx.Tx, path string, f *records.Frame, column string) error {
	col, _ := f.Column(column)
	table := storage.TableName(path)
	seen := map[string]bool{}
	for _, r := range f.Rows {
		v := r[column]
		if v == nil {
			continue
		}
		lit := records.Format(col.Type, v)
		if seen[lit] {
			continue
		}
		seen[lit] = true

		name := PartitionName(table, lit)
		var taken bool
		if err := tx.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ddl.Postgres.FQN(s.schema+"."+name)).Scan(&taken); err != nil {
			return fmt.Errorf("partition lookup %s: %w", name, err)
		}
		if taken {
			continue
		}
		var inDefault bool
		q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = %s)",
			ddl.Postgres.FQN(s.schema+"."+table+"_default"), ddl.Postgres.Ident(column), Literal(col.Type, lit))
		if err := tx.QueryRow(ctx, q).Scan(&inDefault); err != nil {
			return fmt.Errorf("default partition scan: %w", err)
		}
		if inDefault {
			continue
		}
		stmt := fmt.Sprintf("CREATE TABLE %s PARTITION OF %s FOR VALUES IN (%s)",
			ddl.Postgres.FQN(s.schema+"."+name), ddl.Postgres.FQN(s.schema+"."+table), Literal(col.Type, lit))
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create partition %s: %w", name, err)
		}
	}
	return nil
}

// partitionColumnOf returns the LIST partition key of schema.table, or "".
func partitionColumnOf(ctx context.Context, tx pgx.Tx, schema, table string) string {
	var col string
	err := tx.QueryRow(ctx, `
		SELECT a.attname
		  FROM pg_partitioned_table p
		  JOIN pg_class c ON c.oid = p.partrelid
		  JOIN pg_namespace n ON n.oid = c.relnamespace
		  JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = p.partattrs[0]
		 WHERE n.nspname = $1 AND c.relname = $2`, schema, table).Scan(&col)
	if err != nil {
		return ""
	}
	return col
}

// PartitionName derives a partition table name from its parent and value.
func PartitionName(table, value string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return table + "_p_" + sb.String()
}

// Literal renders a formatted value as a SQL literal for a partition bound.
func Literal(typ records.Type, v string) string {
	switch typ {
	case records.Int, records.Float:
		return v
	case records.Date:
		return "DATE '" + v + "'"
	case records.Timestamp:
		return "TIMESTAMP '" + v + "'"
	default:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
}

func copyRows(ctx context.Context, tx pgx.Tx, table pgx.Identifier, f *records.Frame) error {
	if f.Len() == 0 {
		return nil
	}
	n, err := tx.CopyFrom(ctx, table, f.Names(), pgx.CopyFromRows(f.Matrix()))
	if err != nil {
		return copyError(err)
	}
	if n != int64(f.Len()) {
		return fmt.Errorf("copied %d of %d rows", n, f.Len())
	}
	return nil
}

// copyError appends the server detail to a COPY failure and keeps the
// *pgconn.PgError reachable through errors.As.
func copyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w: %s", err, pgErr.Detail)
	}
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}
