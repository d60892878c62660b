package main

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics/datadog"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics/prompush"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
)

const defaultDogStatsD = "127.0.0.1:8125"

// tableStoreConfig derives the table store settings. Lakehouse data files go
// under the processed prefix of the job bucket unless the "data_path" option
// says otherwise.
func tableStoreConfig(cfg config.Job) storage.Config {
	dataPath := cfg.TableStore.Options.String("data_path", "")
	if dataPath == "" {
		switch cfg.ObjectStore.Kind {
		case "local":
			dataPath = filepath.Join(cfg.ObjectStore.Root, cfg.Bucket, cfg.Layout.ProcessedPrefix) + string(filepath.Separator)
		case "s3", "":
			dataPath = fmt.Sprintf("s3://%s/%s", cfg.Bucket, objectstore.Dir(cfg.Layout.ProcessedPrefix))
		}
	}
	opts := config.Options{}
	for k, v := range cfg.TableStore.Options {
		opts[k] = v
	}
	if cfg.ObjectStore.Kind == "local" {
		if _, set := opts["local"]; !set {
			opts["local"] = true
		}
	}
	if cfg.ObjectStore.ForcePathStyle {
		if _, set := opts["url_style"]; !set {
			opts["url_style"] = "path"
		}
	}
	return storage.Config{
		Kind:     cfg.TableStore.Kind,
		DSN:      cfg.TableStore.DSN,
		DataPath: dataPath,
		Region:   cfg.ObjectStore.Region,
		Endpoint: cfg.ObjectStore.Endpoint,
		Options:  opts,
	}
}

// setupMetrics installs the configured metrics backend. Failures leave the
// no-op backend in place.
func setupMetrics(cfg config.Job, runID string, log *zap.Logger) error {
	switch cfg.Metrics.Backend {
	case "pushgateway":
		b, err := prompush.New(prompush.Config{
			URL:       cfg.Metrics.PushgatewayURL,
			Job:       cfg.Job,
			Namespace: cfg.Metrics.Namespace,
			Instance:  runID,
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "datadog":
		addr := cfg.Metrics.DatadogAddr
		if addr == "" {
			addr = defaultDogStatsD
		}
		b, err := datadog.New(datadog.Config{
			Addr:      addr,
			Namespace: cfg.Metrics.Namespace,
			Tags:      []string{"job:" + cfg.Job, "run_id:" + runID},
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case "", "none":
		log.Debug("metrics disabled")
		return nil
	default:
		return fmt.Errorf("unknown metrics backend %q", cfg.Metrics.Backend)
	}
	log.Info("metrics enabled", zap.String("backend", cfg.Metrics.Backend))
	return nil
}
