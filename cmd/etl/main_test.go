package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/jobrun"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
)

const (
	ordersCSV = "order_num,order_id,user_id,order_timestamp,total_amount,date\n" +
		"1,101,7,2024-01-05T10:00:00,12.5,2024-01-05\n" +
		"2,102,8,2024-01-06T11:30:00,3,2024-01-06\n" +
		"3,,9,2024-01-07T00:00:00,1,2024-01-07\n"
	itemsCSV = "id,order_id,user_id,days_since_prior_order,product_id,add_to_cart_order,reordered,order_timestamp,date\n" +
		"1,101,7,,501,1,0,2024-01-05T10:00:00,2024-01-05\n" +
		"2,777,8,3,502,1,1,2024-01-06T11:30:00,2024-01-06\n"
	productsCSV = "product_id,department_id,department,product_name\n" +
		"501,1,produce,Banana\n" +
		"502,2,dairy,Milk\n"
)

type env struct {
	root   string
	config string
}

func newEnv(t *testing.T) env {
	t.Helper()
	return newEnvWithDSN(t, "tables.db")
}

// newEnvWithDSN places the sqlite database at dsn relative to the env dir.
func newEnvWithDSN(t *testing.T, dsn string) env {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "objects")
	cfg := "bucket: lake\n" +
		"object_store:\n  kind: local\n  root: " + root + "\n" +
		"table_store:\n  kind: sqlite\n  dsn: " + filepath.Join(dir, dsn) + "\n" +
		"metrics:\n  backend: none\n"
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return env{root: root, config: path}
}

func (e env) put(t *testing.T, key, body string) {
	t.Helper()
	p := filepath.Join(e.root, "lake", filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func (e env) manifests(t *testing.T) []jobrun.Manifest {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(e.root, "lake", "_jobs", "orders-etl", "runs", "*.json"))
	require.NoError(t, err)
	var out []jobrun.Manifest
	for _, p := range paths {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		var m jobrun.Manifest
		require.NoError(t, json.Unmarshal(b, &m))
		out = append(out, m)
	}
	return out
}

func TestRun_MissingJobName(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), nil, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--job-name is required")
}

func TestRun_ValidateOnly(t *testing.T) {
	e := newEnv(t)
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--job-name", "orders-etl", "--config", e.config, "--validate"}, &stderr)
	assert.Equal(t, 0, code)
	assert.Empty(t, e.manifests(t))
}

func TestRun_InvalidConfig(t *testing.T) {
	e := newEnv(t)
	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--job-name", "orders-etl", "--config", e.config,
		"--metrics-backend", "pushgateway", "--pushgateway-url", "::not a url",
	}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "error")
}

func TestRun_EndToEnd(t *testing.T) {
	e := newEnv(t)
	e.put(t, "raw/orders/orders.csv", ordersCSV)
	e.put(t, "raw/order_items/items.csv", itemsCSV)
	e.put(t, "raw/products/products.csv", productsCSV)

	args := []string{"--job-name", "orders-etl", "--config", e.config}
	var stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())

	rejected, err := os.ReadFile(filepath.Join(e.root, "lake", "rejected", "orders", "part-00000.csv"))
	require.NoError(t, err)
	assert.Equal(t, "3,,9,2024-01-07T00:00:00,1,2024-01-07\n", string(rejected))

	ms := e.manifests(t)
	require.Len(t, ms, 1)
	first := ms[0]
	assert.Equal(t, jobrun.Succeeded, first.Status)
	assert.Equal(t, jobrun.DatasetCounts{Raw: 3, Valid: 2, Invalid: 1, Inserted: 2, Created: true}, *first.Counts[schema.Orders])
	assert.Equal(t, int64(1), first.Counts[schema.OrderItems].RIDropped)

	// second run merges into the existing tables
	e.put(t, "raw/orders/orders.csv", "order_num,order_id,user_id,order_timestamp,total_amount,date\n"+
		"2,102,8,2024-01-06T11:30:00,42,2024-01-06\n"+
		"4,103,9,2024-01-08T09:00:00,5,2024-01-08\n")
	require.Equal(t, 0, run(context.Background(), args, &stderr), stderr.String())

	ms = e.manifests(t)
	require.Len(t, ms, 2)
	var second jobrun.Manifest
	for _, m := range ms {
		if m.RunID != first.RunID {
			second = m
		}
	}
	oc := second.Counts[schema.Orders]
	require.NotNil(t, oc)
	assert.False(t, oc.Created)
	assert.Equal(t, int64(1), oc.Inserted)
	assert.Equal(t, int64(1), oc.Updated)
}

func TestRun_FailureCommitsManifest(t *testing.T) {
	e := newEnv(t)
	e.put(t, "raw/orders/orders.csv", ordersCSV)
	e.put(t, "raw/order_items/items.csv", itemsCSV)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--job-name", "orders-etl", "--config", e.config}, &stderr)
	assert.Equal(t, 1, code)

	ms := e.manifests(t)
	require.Len(t, ms, 1)
	assert.Equal(t, jobrun.Failed, ms[0].Status)
	assert.Equal(t, "read", ms[0].Stage)
	assert.Equal(t, schema.Products, ms[0].Dataset)
	assert.NotEmpty(t, ms[0].Error)
}

func TestRun_TableStoreFailureCommitsManifest(t *testing.T) {
	e := newEnvWithDSN(t, filepath.Join("missing", "tables.db"))
	e.put(t, "raw/orders/orders.csv", ordersCSV)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"--job-name", "orders-etl", "--config", e.config}, &stderr)
	assert.Equal(t, 1, code)

	ms := e.manifests(t)
	require.Len(t, ms, 1)
	assert.Equal(t, jobrun.Failed, ms[0].Status)
	assert.Equal(t, "setup", ms[0].Stage)
	assert.Contains(t, ms[0].Error, "sqlite")
}

func TestTableStoreConfig_DataPath(t *testing.T) {
	cfg := config.Default()
	cfg.Bucket = "lake"
	sc := tableStoreConfig(cfg)
	assert.Equal(t, "s3://lake/processed/", sc.DataPath)

	cfg.ObjectStore.Kind = "local"
	cfg.ObjectStore.Root = "/srv/objects"
	sc = tableStoreConfig(cfg)
	assert.Equal(t, filepath.Join("/srv/objects", "lake", "processed")+string(filepath.Separator), sc.DataPath)
	assert.True(t, sc.Options.Bool("local", false))

	cfg.TableStore.Options = config.Options{"data_path": "s3://other/lake/"}
	assert.Equal(t, "s3://other/lake/", tableStoreConfig(cfg).DataPath)
}

func TestSetupMetrics_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Backend = "graphite"
	assert.Error(t, setupMetrics(cfg, "run", nil))
}
