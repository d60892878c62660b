package ddl

import (
	"strings"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name and an ordered list of columns. Suffix is
// raw SQL appended after the column list, e.g. a PARTITION BY clause.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
	Suffix  string
}

// Dialect captures the per-backend differences the builders care about.
type Dialect struct {
	Name        string
	Open, Close string // identifier quote characters
	Types       map[records.Type]string
	IfNotExists bool
	Terminator  string // appended to MERGE statements
}

var (
	Postgres = Dialect{
		Name: "postgres", Open: `"`, Close: `"`, IfNotExists: true,
		Types: map[records.Type]string{
			records.Int:       "BIGINT",
			records.Float:     "DOUBLE PRECISION",
			records.Text:      "TEXT",
			records.Timestamp: "TIMESTAMP",
			records.Date:      "DATE",
		},
	}
	SQLite = Dialect{
		Name: "sqlite", Open: `"`, Close: `"`, IfNotExists: true,
		Types: map[records.Type]string{
			records.Int:       "INTEGER",
			records.Float:     "REAL",
			records.Text:      "TEXT",
			records.Timestamp: "TEXT",
			records.Date:      "TEXT",
		},
	}
	MSSQL = Dialect{
		Name: "mssql", Open: `[`, Close: `]`, Terminator: ";",
		Types: map[records.Type]string{
			records.Int:       "BIGINT",
			records.Float:     "FLOAT",
			records.Text:      "NVARCHAR(MAX)",
			records.Timestamp: "DATETIME2",
			records.Date:      "DATE",
		},
	}
	// MySQL text is bounded so key and partition columns stay indexable.
	MySQL = Dialect{
		Name: "mysql", Open: "`", Close: "`", IfNotExists: true,
		Types: map[records.Type]string{
			records.Int:       "BIGINT",
			records.Float:     "DOUBLE",
			records.Text:      "VARCHAR(512)",
			records.Timestamp: "DATETIME",
			records.Date:      "DATE",
		},
	}
	DuckDB = Dialect{
		Name: "duckdb", Open: `"`, Close: `"`, IfNotExists: true,
		Types: map[records.Type]string{
			records.Int:       "BIGINT",
			records.Float:     "DOUBLE",
			records.Text:      "VARCHAR",
			records.Timestamp: "TIMESTAMP",
			records.Date:      "DATE",
		},
	}
)

// Ident quotes a single identifier segment, doubling embedded close quotes.
func (d Dialect) Ident(id string) string {
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// FQN quotes a possibly schema-qualified name segment by segment. Empty
// segments are dropped.
func (d Dialect) FQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Ident(p))
	}
	return strings.Join(out, ".")
}

// Idents quotes each name.
func (d Dialect) Idents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.Ident(n)
	}
	return out
}

// FromColumns derives a table definition from record columns. Key columns
// are NOT NULL; every other column is nullable regardless of the logical
// schema, since rows are only checked for their required keys. primaryKey
// controls whether keys are also declared as the primary key.
func FromColumns(d Dialect, fqn string, cols []records.Column, keys []string, primaryKey bool) TableDef {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(cols))}
	for _, c := range cols {
		typ, ok := d.Types[c.Type]
		if !ok {
			typ = d.Types[records.Text]
		}
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    typ,
			Nullable:   !isKey[c.Name],
			PrimaryKey: primaryKey && isKey[c.Name],
		})
	}
	return td
}
