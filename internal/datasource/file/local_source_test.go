package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, p, body string) {
	t.Helper()
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	type tc struct {
		name            string
		prepare         func(t *testing.T) string
		cancel          bool
		wantErrIs       error
		wantErrContains string
		wantContent     string
	}

	cases := []tc{
		{
			name: "success_reads_content",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "orders.csv")
				writeFile(t, p, "order_id\n1\n")
				return p
			},
			wantContent: "order_id\n1\n",
		},
		{
			name: "missing_file_errors_with_wrapping",
			prepare: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErrIs:       os.ErrNotExist,
			wantErrContains: "open ",
		},
		{
			name: "pre_canceled_context_short_circuits",
			prepare: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "orders.csv")
				writeFile(t, p, "ignored")
				return p
			},
			cancel:    true,
			wantErrIs: context.Canceled,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if c.cancel {
				cancel()
			}

			rc, err := NewLocal(c.prepare(t)).Open(ctx)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("errors.Is(%v, %v) = false", err, c.wantErrIs)
				}
				if c.wantErrContains != "" && !strings.Contains(err.Error(), c.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, c.wantErrContains)
				}
				if rc != nil {
					t.Fatalf("got non-nil ReadCloser on error: %T", rc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != c.wantContent {
				t.Fatalf("content: got %q want %q", got, c.wantContent)
			}
		})
	}
}

func TestLocalNameParts(t *testing.T) {
	t.Parallel()

	l := NewLocal(filepath.Join("Data", "Orders.XLSX"))
	if got := l.Base(); got != "Orders" {
		t.Fatalf("Base: got %q", got)
	}
	if got := l.Ext(); got != ".xlsx" {
		t.Fatalf("Ext: got %q", got)
	}
}

func TestDirFiltersAndSorts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.csv"), "")
	writeFile(t, filepath.Join(dir, "a.XLSX"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Dir(dir, ".csv", ".xlsx")
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Dir: got %d files want 2", len(got))
	}
	if got[0].Base() != "a" || got[1].Base() != "b" {
		t.Fatalf("Dir order: %s, %s", got[0].Name(), got[1].Name())
	}
}
