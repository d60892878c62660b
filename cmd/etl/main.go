// Command etl runs the orders lakehouse job: it reads raw CSV extracts for
// orders, order items and products, quarantines invalid rows, enforces
// referential integrity, enriches timestamps and merge-upserts the results
// into the processed tables. Every run, successful or not, is committed as a
// manifest under _jobs/{job}/runs/.
//
// Exit status: 0 on success, 1 on a failed run or invalid configuration,
// 2 on usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/jobrun"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/pipeline"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/logger"

	// register every table store; the config picks one.
	_ "github.com/charles-amali/lakehouse-architecture-transaction/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	jobName        string
	cfgPath        string
	metricsBackend string
	pushgatewayURL string
	validate       bool
	verbose        bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.jobName, "job-name", "", "job name (required)")
	fs.StringVar(&o.cfgPath, "config", "", "job config path (.json, .yaml or .yml)")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides config)")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides config)")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.jobName == "" {
		fmt.Fprintln(stderr, "etl: --job-name is required")
		fs.Usage()
		return o, flag.ErrHelp
	}
	return o, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	log, err := newLogger(o.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "etl: logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}
	cfg.Job = o.jobName
	if o.metricsBackend != "" {
		cfg.Metrics.Backend = o.metricsBackend
	}
	if o.pushgatewayURL != "" {
		cfg.Metrics.PushgatewayURL = o.pushgatewayURL
	}

	issues := config.ValidateJob(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Check(issues); err != nil {
		log.Error("configuration is invalid", zap.String("config", o.cfgPath), zap.Error(err))
		return 1
	}
	if o.validate {
		log.Info("configuration is valid", zap.String("config", o.cfgPath))
		return 0
	}

	// Manifests live in the object store, so without it nothing can be
	// committed.
	objects, err := objectstore.Open(objectStoreOptions(cfg))
	if err != nil {
		log.Error("open object store", zap.Error(err))
		return 1
	}

	job := jobrun.New(cfg.Job, jobrun.Deps{Log: log, Objects: objects})
	if err := setupMetrics(cfg, job.RunID, job.Log); err != nil {
		job.Log.Warn("metrics disabled", zap.Error(err))
	}
	tracker := jobrun.NewTracker(job, cfg.Bucket, cfg.Layout.JobsPrefix)
	tracker.Start()

	tables, err := storage.New(ctx, tableStoreConfig(cfg))
	if err != nil {
		return finish(ctx, job, tracker, nil, pipeline.SetupError(
			fmt.Errorf("open %s table store: %w", cfg.TableStore.Kind, err)))
	}
	defer tables.Close()
	job.Tables = tables

	runner := &pipeline.Runner{Job: job, Config: cfg}
	counts, runErr := runner.Run(ctx)
	return finish(ctx, job, tracker, counts, runErr)
}

// finish commits the run and maps it to an exit status.
func finish(ctx context.Context, job *jobrun.Job, tracker *jobrun.Tracker, counts jobrun.Counts, runErr error) int {
	outcome := jobrun.Outcome{Err: runErr, Counts: counts}
	var se *pipeline.StageError
	if errors.As(runErr, &se) {
		outcome.Stage, outcome.Dataset = se.Stage, se.Dataset
	}
	if runErr != nil {
		job.Log.Error("job failed",
			zap.String("stage", outcome.Stage),
			zap.String("dataset", outcome.Dataset),
			zap.Error(runErr))
	}

	// The run is committed even when ctx was cancelled.
	if _, err := tracker.Commit(context.WithoutCancel(ctx), outcome); err != nil {
		job.Log.Error("commit run", zap.Error(err))
		return 1
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return logger.New("development")
	}
	return logger.NewFromEnv()
}

func objectStoreOptions(cfg config.Job) objectstore.Options {
	return objectstore.Options{
		Kind:           cfg.ObjectStore.Kind,
		Region:         cfg.ObjectStore.Region,
		Endpoint:       cfg.ObjectStore.Endpoint,
		ForcePathStyle: cfg.ObjectStore.ForcePathStyle,
		Root:           cfg.ObjectStore.Root,
	}
}
