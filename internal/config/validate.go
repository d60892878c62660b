package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding. Path is a dotted path into the
// config (e.g. "table_store.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var (
	objectStoreKinds = map[string]bool{"s3": true, "local": true, "memory": true}
	tableStoreKinds  = map[string]bool{"ducklake": true, "postgres": true, "sqlite": true, "mssql": true, "mysql": true}
	metricsBackends  = map[string]bool{"none": true, "pushgateway": true, "datadog": true}
)

// ValidateJob lints a job after defaults have been applied. It does not
// mutate the job.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, msg string) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: msg})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it names run manifests and metrics")
	}
	if strings.TrimSpace(j.Bucket) == "" {
		add(SeverityError, "bucket", "bucket must not be empty")
	}

	prefixes := map[string]string{
		"layout.raw_prefix":       j.Layout.RawPrefix,
		"layout.rejected_prefix":  j.Layout.RejectedPrefix,
		"layout.processed_prefix": j.Layout.ProcessedPrefix,
		"layout.jobs_prefix":      j.Layout.JobsPrefix,
	}
	seen := map[string]string{}
	for path, p := range prefixes {
		p = strings.Trim(p, "/")
		if p == "" {
			add(SeverityError, path, "prefix must not be empty")
			continue
		}
		if other, dup := seen[p]; dup {
			add(SeverityError, path, fmt.Sprintf("prefix %q is also used by %s", p, other))
		}
		seen[p] = path
	}

	if !objectStoreKinds[j.ObjectStore.Kind] {
		add(SeverityError, "object_store.kind", fmt.Sprintf("unknown object store kind %q", j.ObjectStore.Kind))
	}
	if j.ObjectStore.Kind == "local" && strings.TrimSpace(j.ObjectStore.Root) == "" {
		add(SeverityError, "object_store.root", "local object store requires a root directory")
	}
	if j.ObjectStore.Kind == "s3" && j.ObjectStore.Region == "" {
		add(SeverityWarning, "object_store.region", "no region set; the AWS default chain decides")
	}

	if !tableStoreKinds[j.TableStore.Kind] {
		add(SeverityError, "table_store.kind", fmt.Sprintf("unknown table store kind %q", j.TableStore.Kind))
	}
	if j.TableStore.Kind != "ducklake" && strings.TrimSpace(j.TableStore.DSN) == "" {
		add(SeverityError, "table_store.dsn", fmt.Sprintf("%s table store requires a dsn", j.TableStore.Kind))
	} else if j.TableStore.Kind == "mysql" {
		if cfg, err := mysql.ParseDSN(j.TableStore.DSN); err != nil {
			add(SeverityError, "table_store.dsn", fmt.Sprintf("invalid mysql dsn: %v", err))
		} else if cfg.DBName == "" {
			add(SeverityError, "table_store.dsn", "mysql dsn must name a database")
		}
	}

	switch j.Metrics.Backend {
	case "pushgateway":
		if _, err := url.ParseRequestURI(j.Metrics.PushgatewayURL); err != nil {
			add(SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a valid URL")
		}
	case "datadog":
		if j.Metrics.DatadogAddr == "" {
			add(SeverityWarning, "metrics.datadog_addr", "no address set; 127.0.0.1:8125 is used")
		}
	default:
		if !metricsBackends[j.Metrics.Backend] {
			add(SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", j.Metrics.Backend))
		}
	}

	if j.Upload.Workers < 1 {
		add(SeverityError, "upload.workers", "workers must be at least 1")
	}
	return issues
}

// Check returns an error wrapping ErrInvalid when issues contains any error
// severity finding.
func Check(issues []Issue) error {
	var msgs []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
