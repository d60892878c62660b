// Package config defines the job configuration: where the bucket lives, which
// object store and table store back it, and how metrics are shipped.
//
// A job file may be JSON or YAML. Environment variables (optionally loaded
// from a .env file) override file values so the same file can be promoted
// across environments.
//
// Example (trimmed):
//
//	{
//	  "job": "orders-lakehouse",
//	  "bucket": "delta-lake-bkt01",
//	  "object_store": { "kind": "s3", "region": "eu-west-1" },
//	  "table_store": { "kind": "ducklake", "dsn": "metadata.ducklake" },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pgw:9091" }
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by Check when a job has error-severity issues.
var ErrInvalid = errors.New("config: invalid job")

const (
	DefaultBucket          = "delta-lake-bkt01"
	DefaultTimestampLayout = "2006-01-02T15:04:05"
	DefaultUploadWorkers   = 4
)

// Job is the top-level configuration for one ETL job.
type Job struct {
	Job             string `json:"job" yaml:"job"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	TimestampLayout string `json:"timestamp_layout" yaml:"timestamp_layout"`

	Layout      Layout      `json:"layout" yaml:"layout"`
	ObjectStore ObjectStore `json:"object_store" yaml:"object_store"`
	TableStore  TableStore  `json:"table_store" yaml:"table_store"`
	Quarantine  Quarantine  `json:"quarantine" yaml:"quarantine"`
	Metrics     Metrics     `json:"metrics" yaml:"metrics"`
	Upload      Upload      `json:"upload" yaml:"upload"`
}

// Layout names the top-level prefixes inside the bucket.
type Layout struct {
	RawPrefix       string `json:"raw_prefix" yaml:"raw_prefix"`
	RejectedPrefix  string `json:"rejected_prefix" yaml:"rejected_prefix"`
	ProcessedPrefix string `json:"processed_prefix" yaml:"processed_prefix"`
	JobsPrefix      string `json:"jobs_prefix" yaml:"jobs_prefix"`
}

// ObjectStore selects the bucket implementation.
type ObjectStore struct {
	Kind           string `json:"kind" yaml:"kind"` // s3 | local | memory
	Region         string `json:"region" yaml:"region"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool   `json:"force_path_style" yaml:"force_path_style"`
	Root           string `json:"root" yaml:"root"`
}

// TableStore selects the transactional table backend.
type TableStore struct {
	Kind    string  `json:"kind" yaml:"kind"` // ducklake | postgres | sqlite | mssql
	DSN     string  `json:"dsn" yaml:"dsn"`
	Options Options `json:"options" yaml:"options"`
}

// Quarantine controls the rejected-row writer.
type Quarantine struct {
	Header bool `json:"header" yaml:"header"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"` // pushgateway | datadog | none
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string `json:"namespace" yaml:"namespace"`
}

// Upload configures the spreadsheet uploader.
type Upload struct {
	Workers int `json:"workers" yaml:"workers"`
}

// Default returns a job with every default applied.
func Default() Job {
	var j Job
	j.ApplyDefaults()
	return j
}

// ApplyDefaults fills zero-valued fields.
func (j *Job) ApplyDefaults() {
	if j.Bucket == "" {
		j.Bucket = DefaultBucket
	}
	if j.TimestampLayout == "" {
		j.TimestampLayout = DefaultTimestampLayout
	}
	if j.Layout.RawPrefix == "" {
		j.Layout.RawPrefix = "raw"
	}
	if j.Layout.RejectedPrefix == "" {
		j.Layout.RejectedPrefix = "rejected"
	}
	if j.Layout.ProcessedPrefix == "" {
		j.Layout.ProcessedPrefix = "processed"
	}
	if j.Layout.JobsPrefix == "" {
		j.Layout.JobsPrefix = "_jobs"
	}
	if j.ObjectStore.Kind == "" {
		j.ObjectStore.Kind = "s3"
	}
	if j.TableStore.Kind == "" {
		j.TableStore.Kind = "ducklake"
	}
	if j.TableStore.Options == nil {
		j.TableStore.Options = Options{}
	}
	if j.Metrics.Backend == "" {
		j.Metrics.Backend = "none"
	}
	if j.Upload.Workers <= 0 {
		j.Upload.Workers = DefaultUploadWorkers
	}
}

// envOverrides maps environment variables onto job fields.
var envOverrides = map[string]func(*Job, string){
	"ETL_BUCKET":        func(j *Job, v string) { j.Bucket = v },
	"TABLE_STORE_KIND":  func(j *Job, v string) { j.TableStore.Kind = v },
	"TABLE_STORE_DSN":   func(j *Job, v string) { j.TableStore.DSN = v },
	"OBJECT_STORE_KIND": func(j *Job, v string) { j.ObjectStore.Kind = v },
	"AWS_REGION":        func(j *Job, v string) { j.ObjectStore.Region = v },
	"S3_ENDPOINT":       func(j *Job, v string) { j.ObjectStore.Endpoint = v },
	"METRICS_BACKEND":   func(j *Job, v string) { j.Metrics.Backend = v },
	"PUSHGATEWAY_URL":   func(j *Job, v string) { j.Metrics.PushgatewayURL = v },
	"DOGSTATSD_ADDR":    func(j *Job, v string) { j.Metrics.DatadogAddr = v },
}

// ApplyEnv applies every non-empty override returned by getenv.
func (j *Job) ApplyEnv(getenv func(string) string) {
	for k, set := range envOverrides {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			set(j, v)
		}
	}
}

// Decode parses a job document. format is "json" or "yaml".
func Decode(b []byte, format string) (Job, error) {
	var j Job
	switch format {
	case "json":
		if err := json.Unmarshal(b, &j); err != nil {
			return Job{}, fmt.Errorf("decode json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(b, &j); err != nil {
			return Job{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return Job{}, fmt.Errorf("unsupported config format %q", format)
	}
	return j, nil
}

// Load reads path (if non-empty), loads a .env file from the working
// directory when one exists, then applies environment overrides and
// defaults. An empty path yields a defaults-plus-environment job.
func Load(path string) (Job, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Job{}, fmt.Errorf("load .env: %w", err)
	}

	var j Job
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Job{}, fmt.Errorf("read config %s: %w", path, err)
		}
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if j, err = Decode(b, format); err != nil {
			return Job{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	j.ApplyEnv(os.Getenv)
	j.ApplyDefaults()
	return j, nil
}

// Prefix joins a layout prefix with a dataset name, e.g. raw/orders/.
func Prefix(base, dataset string) string {
	return strings.TrimRight(base, "/") + "/" + dataset + "/"
}

// Path joins a layout prefix with a dataset name without a trailing slash,
// e.g. processed/orders.
func Path(base, dataset string) string {
	return strings.TrimRight(base, "/") + "/" + dataset
}
