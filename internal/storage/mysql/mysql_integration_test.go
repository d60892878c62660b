//go:build integration

package mysql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping MySQL integration tests")
	}
	return dsn
}

func TestUpsertIntegration(t *testing.T) {
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	path := "processed/it_orders"
	s.drop("it_orders")
	defer s.drop("it_orders")

	day := func(d string) time.Time { v, _ := time.Parse(records.DateLayout, d); return v }
	f := records.NewFrame([]records.Column{
		{Name: "order_id", Type: records.Int},
		{Name: "status", Type: records.Text},
		{Name: "order_date", Type: records.Date},
	})
	f.Rows = []records.Record{
		{"order_id": int64(1), "status": "new", "order_date": day("2024-01-01")},
		{"order_id": int64(2), "status": "new", "order_date": day("2024-01-02")},
	}
	target := storage.Target{Path: path, KeyColumns: []string{"order_id"}, PartitionColumn: "order_date"}
	if _, err := storage.Upsert(ctx, s, target, f); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	g := f.WithRows([]records.Record{
		{"order_id": int64(2), "status": "shipped", "order_date": day("2024-01-02")},
		{"order_id": int64(3), "status": "new", "order_date": day("2024-01-03")},
	})
	res, err := storage.Upsert(ctx, s, target, g)
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Fatalf("merge = %+v, want 1 inserted 1 updated", res.MergeResult)
	}

	res, err = storage.Upsert(ctx, s, target, g)
	if err != nil {
		t.Fatalf("re-merge error = %v", err)
	}
	if res.Inserted != 0 || res.Updated != 2 {
		t.Fatalf("re-merge = %+v, want 0 inserted 2 updated", res.MergeResult)
	}

	var status string
	if err := s.db.QueryRowContext(ctx, "SELECT `status` FROM `it_orders` WHERE `order_id` = 2").Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "shipped" {
		t.Fatalf("status = %q, want shipped", status)
	}
}
