package mssql

import (
	"context"
	"strings"
	"testing"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/ddl"
)

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "sqlserver://%zz", "")
	if err == nil {
		t.Fatal("Open() with malformed DSN: want error")
	}
	if !strings.Contains(err.Error(), "mssql dsn") {
		t.Fatalf("error = %v, want mssql dsn prefix", err)
	}
}

func TestMergeStatementShape(t *testing.T) {
	s := &Store{schema: DefaultSchema}
	target := ddl.MSSQL.FQN(s.table("processed/orders"))
	if target != "[dbo].[orders]" {
		t.Fatalf("target = %q", target)
	}
	q, err := ddl.BuildMergeSQL(ddl.MSSQL, target, "#stage", []string{"order_id", "status"}, []string{"order_id"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(q, ";") {
		t.Errorf("MERGE must be terminated for SQL Server: %q", q)
	}
	if !strings.Contains(q, "USING #stage AS s") {
		t.Errorf("MERGE source = %q", q)
	}
}
