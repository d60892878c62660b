// Package ducklake implements storage.TableStore on DuckDB with the DuckLake
// extension. Tables live in an attached lakehouse catalog whose parquet files
// go to DATA_PATH (local or S3), and every committed transaction becomes a
// snapshot.
//
// Incoming frames are appended into a staging table in DuckDB's in-memory
// catalog with the Appender API, then moved into the lake by a single INSERT
// or MERGE inside one transaction.
package ducklake

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

const (
	// Catalog is the alias the lake is attached under.
	Catalog = "lake"
	schema  = "main"
	// DefaultMetadata is the DuckDB file that holds the lake catalog.
	DefaultMetadata = "metadata.ducklake"
)

func init() {
	storage.Register("ducklake", func(ctx context.Context, cfg storage.Config) (storage.TableStore, error) {
		return Open(ctx, Config{
			Metadata: cfg.DSN,
			DataPath: cfg.DataPath,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			URLStyle: cfg.Options.String("url_style", ""),
			KeyID:    cfg.Options.String("s3_key_id", ""),
			Secret:   cfg.Options.String("s3_secret", ""),
			Local:    cfg.Options.Bool("local", false),
		})
	})
}

// Config describes where the lake lives.
type Config struct {
	// Metadata is the catalog database, e.g. "metadata.ducklake" or
	// "postgres:dbname=lake". Defaults to DefaultMetadata.
	Metadata string
	// DataPath is where data files are written, e.g. s3://bucket/processed/.
	DataPath string

	Region   string
	Endpoint string
	URLStyle string // "path" or "vhost"
	// KeyID and Secret are optional; without them the AWS credential chain
	// is used.
	KeyID  string
	Secret string
	// Local skips httpfs and the S3 secret.
	Local bool
}

// Store is a DuckLake-backed storage.TableStore. Calls are serialized.
type Store struct {
	mu        sync.Mutex
	connector *duckdb.Connector
	db        *sql.DB
	conn      *duckdb.Conn // native connection for the Appender API
}

var _ storage.TableStore = (*Store)(nil)

// Open starts an in-memory DuckDB, loads DuckLake and attaches the catalog.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("ducklake: connector: %w", err)
	}
	s := &Store{connector: connector, db: sql.OpenDB(connector)}

	if err := s.bootstrap(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}

	c, err := connector.Connect(ctx)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ducklake: native connection: %w", err)
	}
	conn, ok := c.(*duckdb.Conn)
	if !ok {
		_ = c.Close()
		_ = s.Close()
		return nil, fmt.Errorf("ducklake: unexpected connection type %T", c)
	}
	s.conn = conn
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context, cfg Config) error {
	stmts := []string{"INSTALL ducklake", "LOAD ducklake"}
	if !cfg.Local {
		stmts = append(stmts, "INSTALL httpfs", "LOAD httpfs")
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ducklake: %s: %w", q, err)
		}
	}

	if !cfg.Local && strings.HasPrefix(cfg.DataPath, "s3://") {
		if _, err := s.db.ExecContext(ctx, SecretSQL(cfg)); err != nil {
			return fmt.Errorf("ducklake: create s3 secret: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, AttachSQL(cfg)); err != nil {
		return fmt.Errorf("ducklake: attach: %w", err)
	}
	return nil
}

func quoteLiteral(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// SecretSQL renders the CREATE SECRET statement for S3 access.
func SecretSQL(cfg Config) string {
	parts := []string{"TYPE S3"}
	if cfg.KeyID != "" {
		parts = append(parts, "KEY_ID "+quoteLiteral(cfg.KeyID), "SECRET "+quoteLiteral(cfg.Secret))
	} else {
		parts = append(parts, "PROVIDER credential_chain")
	}
	if cfg.Region != "" {
		parts = append(parts, "REGION "+quoteLiteral(cfg.Region))
	}
	if cfg.Endpoint != "" {
		ep := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		parts = append(parts, "ENDPOINT "+quoteLiteral(ep))
		if strings.HasPrefix(cfg.Endpoint, "http://") {
			parts = append(parts, "USE_SSL false")
		}
	}
	if cfg.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+quoteLiteral(cfg.URLStyle))
	}
	return "CREATE OR REPLACE SECRET lake_s3 (" + strings.Join(parts, ", ") + ")"
}

// AttachSQL renders the ATTACH statement for the lake catalog.
func AttachSQL(cfg Config) string {
	meta := cfg.Metadata
	if meta == "" {
		meta = DefaultMetadata
	}
	q := fmt.Sprintf("ATTACH %s AS %s", quoteLiteral("ducklake:"+meta), Catalog)
	if cfg.DataPath != "" {
		q += fmt.Sprintf(" (DATA_PATH %s)", quoteLiteral(cfg.DataPath))
	}
	return q
}

func lakeTable(path string) string { return Catalog + "." + schema + "." + storage.TableName(path) }

func stageTable(path string) string { return "stage_" + storage.TableName(path) }

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		  WHERE table_catalog = ? AND table_schema = ? AND table_name = ?`,
		Catalog, schema, storage.TableName(path)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("ducklake: exists %s: %w", path, err)
	}
	return n > 0, nil
}

func (s *Store) CreatePartitioned(ctx context.Context, path string, f *records.Frame, partitionColumn string) error {
	if err := storage.CheckFrame(f, partitionColumn); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, err := s.stage(ctx, path, f)
	if err != nil {
		return err
	}
	defer s.dropStage(stage)

	create, err := ddl.BuildCreateTableSQL(ddl.DuckDB, ddl.FromColumns(ddl.DuckDB, lakeTable(path), f.Columns, nil, false))
	if err != nil {
		return err
	}
	target := ddl.DuckDB.FQN(lakeTable(path))
	cols := strings.Join(ddl.DuckDB.Idents(f.Names()), ", ")

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s SET PARTITIONED BY (%s)",
			target, ddl.DuckDB.Ident(partitionColumn))); err != nil {
			return fmt.Errorf("partition %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			target, cols, cols, stage)); err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}
		return nil
	})
}

func (s *Store) Merge(ctx context.Context, path string, f *records.Frame, keyColumns []string) (storage.MergeResult, error) {
	if err := storage.CheckFrame(f, keyColumns...); err != nil {
		return storage.MergeResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stage, err := s.stage(ctx, path, f)
	if err != nil {
		return storage.MergeResult{}, err
	}
	defer s.dropStage(stage)

	target := ddl.DuckDB.FQN(lakeTable(path))
	merge, err := ddl.BuildMergeSQL(ddl.DuckDB, target, stage, f.Names(), keyColumns)
	if err != nil {
		return storage.MergeResult{}, err
	}

	var res storage.MergeResult
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var matched int64
		if err := tx.QueryRowContext(ctx, ddl.BuildCountMatchedSQL(ddl.DuckDB, target, stage, keyColumns)).Scan(&matched); err != nil {
			return fmt.Errorf("count matched %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, merge); err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
		res = storage.MergeResult{Updated: matched, Inserted: int64(f.Len()) - matched}
		return nil
	})
	return res, err
}

// stage loads f into a fresh table in the in-memory catalog and returns its
// quoted, qualified name.
func (s *Store) stage(ctx context.Context, path string, f *records.Frame) (string, error) {
	name := stageTable(path)
	qualified := ddl.DuckDB.FQN("memory.main." + name)
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qualified); err != nil {
		return "", fmt.Errorf("ducklake: reset stage: %w", err)
	}
	create, err := ddl.BuildCreateTableSQL(ddl.DuckDB, ddl.FromColumns(ddl.DuckDB, "memory.main."+name, f.Columns, nil, false))
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return "", fmt.Errorf("ducklake: create stage: %w", err)
	}

	app, err := duckdb.NewAppenderFromConn(s.conn, "", name)
	if err != nil {
		return "", fmt.Errorf("ducklake: appender: %w", err)
	}
	for i, r := range f.Rows {
		if err := app.AppendRow(rowValues(f, r)...); err != nil {
			_ = app.Close()
			return "", fmt.Errorf("ducklake: append row %d: %w", i, err)
		}
	}
	if err := app.Close(); err != nil {
		return "", fmt.Errorf("ducklake: flush stage: %w", err)
	}
	return qualified, nil
}

// rowValues aligns r to f's columns in the Go types the appender accepts.
func rowValues(f *records.Frame, r records.Record) []driver.Value {
	out := make([]driver.Value, len(f.Columns))
	for i, c := range f.Columns {
		switch v := r[c.Name].(type) {
		case int:
			out[i] = int64(v)
		case string:
			if c.Type != records.Text {
				// uncoerced text in a typed column
				out[i] = nil
				continue
			}
			out[i] = v
		default:
			out[i] = v
		}
	}
	return out
}

func (s *Store) dropStage(qualified string) {
	_, _ = s.db.Exec("DROP TABLE IF EXISTS " + qualified)
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ducklake: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ducklake: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ducklake: commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.conn != nil {
		keep(s.conn.Close())
	}
	if s.db != nil {
		keep(s.db.Close())
	}
	if s.connector != nil {
		keep(s.connector.Close())
	}
	return first
}
