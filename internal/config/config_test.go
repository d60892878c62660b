package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDecodeJSONAndYAMLAgree(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "orders-lakehouse",
	  "bucket": "b1",
	  "layout": { "raw_prefix": "landing" },
	  "object_store": { "kind": "local", "root": "/tmp/lake" },
	  "table_store": { "kind": "sqlite", "dsn": "file:lake.db", "options": { "schema": "main", "busy_ms": 500 } },
	  "quarantine": { "header": true },
	  "metrics": { "backend": "datadog", "datadog_addr": "127.0.0.1:8125" },
	  "upload": { "workers": 8 }
	}`
	const ym = `
job: orders-lakehouse
bucket: b1
layout:
  raw_prefix: landing
object_store:
  kind: local
  root: /tmp/lake
table_store:
  kind: sqlite
  dsn: "file:lake.db"
  options:
    schema: main
    busy_ms: 500
quarantine:
  header: true
metrics:
  backend: datadog
  datadog_addr: "127.0.0.1:8125"
upload:
  workers: 8
`
	fromJSON, err := Decode([]byte(js), "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromYAML, err := Decode([]byte(ym), "yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}

	for name, j := range map[string]Job{"json": fromJSON, "yaml": fromYAML} {
		if j.Job != "orders-lakehouse" || j.Bucket != "b1" || j.Layout.RawPrefix != "landing" {
			t.Fatalf("%s: top-level fields: %+v", name, j)
		}
		if j.TableStore.Kind != "sqlite" || j.TableStore.Options.String("schema", "") != "main" {
			t.Fatalf("%s: table store: %+v", name, j.TableStore)
		}
		if got := j.TableStore.Options.Int("busy_ms", 0); got != 500 {
			t.Fatalf("%s: busy_ms = %d, want 500", name, got)
		}
		if !j.Quarantine.Header || j.Upload.Workers != 8 {
			t.Fatalf("%s: quarantine/upload: %+v %+v", name, j.Quarantine, j.Upload)
		}
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := Decode([]byte("x=1"), "toml"); err == nil {
		t.Fatal("expected error for toml")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	j := Default()
	if j.Bucket != DefaultBucket || j.TimestampLayout != DefaultTimestampLayout {
		t.Fatalf("defaults: %+v", j)
	}
	want := Layout{RawPrefix: "raw", RejectedPrefix: "rejected", ProcessedPrefix: "processed", JobsPrefix: "_jobs"}
	if j.Layout != want {
		t.Fatalf("layout = %+v, want %+v", j.Layout, want)
	}
	if j.TableStore.Kind != "ducklake" || j.ObjectStore.Kind != "s3" || j.Metrics.Backend != "none" {
		t.Fatalf("kinds: %+v", j)
	}
	if j.TableStore.Options == nil {
		t.Fatal("options must be non-nil")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"ETL_BUCKET":       "override",
		"TABLE_STORE_KIND": "postgres",
		"TABLE_STORE_DSN":  "postgres://x",
		"S3_ENDPOINT":      "http://minio:9000",
		"METRICS_BACKEND":  " ",
	}
	j := Job{Bucket: "file", Metrics: Metrics{Backend: "datadog"}}
	j.ApplyEnv(func(k string) string { return env[k] })

	if j.Bucket != "override" || j.TableStore.Kind != "postgres" || j.TableStore.DSN != "postgres://x" {
		t.Fatalf("overrides not applied: %+v", j)
	}
	if j.ObjectStore.Endpoint != "http://minio:9000" {
		t.Fatalf("endpoint = %q", j.ObjectStore.Endpoint)
	}
	if j.Metrics.Backend != "datadog" {
		t.Fatalf("blank override must be ignored, got %q", j.Metrics.Backend)
	}
}

// Load touches the process environment, so it does not run in parallel.
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "job.yml")
	if err := os.WriteFile(p, []byte("job: nightly\ntable_store:\n  kind: sqlite\n  dsn: \":memory:\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ETL_BUCKET", "from-env")

	j, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if j.Job != "nightly" || j.Bucket != "from-env" || j.TableStore.DSN != ":memory:" {
		t.Fatalf("Load: %+v", j)
	}
	if j.Upload.Workers != DefaultUploadWorkers {
		t.Fatalf("defaults not applied: %+v", j.Upload)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestPrefixAndPath(t *testing.T) {
	t.Parallel()

	if got := Prefix("raw/", "orders"); got != "raw/orders/" {
		t.Fatalf("Prefix = %q", got)
	}
	if got := Path("processed", "order_items"); got != "processed/order_items" {
		t.Fatalf("Path = %q", got)
	}
}

func TestOptionsHelpers(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":  "hello",
		"b":  true,
		"bs": "false",
		"f":  float64(42),
		"i":  7,
		"l":  []any{"alpha", 3, "beta"},
		"m":  map[string]any{"A": "a", "X": 1},
	}
	if o.String("s", "") != "hello" || o.String("missing", "def") != "def" {
		t.Fatal("String")
	}
	if !o.Bool("b", false) || o.Bool("bs", true) || !o.Bool("missing", true) {
		t.Fatal("Bool")
	}
	if o.Int("f", 0) != 42 || o.Int("i", 0) != 7 || o.Int("s", 3) != 3 {
		t.Fatal("Int")
	}
	if got := o.StringSlice("l"); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("StringSlice = %#v", got)
	}
	if o.StringSlice("missing") != nil {
		t.Fatal("StringSlice(missing) must be nil")
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"A": "a"}) {
		t.Fatalf("StringMap = %#v", got)
	}
}

func TestOptionsUnmarshalJSONNull(t *testing.T) {
	t.Parallel()

	var w struct {
		Opts Options `json:"options"`
	}
	if err := json.Unmarshal([]byte(`{"options": null}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Opts == nil || len(w.Opts) != 0 {
		t.Fatalf("Opts = %#v, want non-nil empty map", w.Opts)
	}
}
