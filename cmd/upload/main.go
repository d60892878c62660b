// Command upload copies local .xlsx and .csv extracts into the raw area of
// the job bucket, one CSV object per sheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/upload"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	dir     string
	cfgPath string
	bucket  string
	workers int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.dir, "dir", "Data", "local folder with .xlsx/.csv extracts")
	fs.StringVar(&o.cfgPath, "config", "", "job config (json or yaml)")
	fs.StringVar(&o.bucket, "bucket", "", "target bucket (overrides config)")
	fs.IntVar(&o.workers, "workers", 0, "concurrent uploads (overrides config)")
	return o, fs.Parse(args)
}

// applyFlags lays the command-line overrides over the loaded config.
func applyFlags(cfg *config.Job, o options) {
	if o.bucket != "" {
		cfg.Bucket = o.bucket
	}
	if o.workers > 0 {
		cfg.Upload.Workers = o.workers
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	log := logger.Must()
	defer log.Sync()

	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}
	applyFlags(&cfg, o)

	store, err := objectstore.Open(objectstore.Options{
		Kind:           cfg.ObjectStore.Kind,
		Region:         cfg.ObjectStore.Region,
		Endpoint:       cfg.ObjectStore.Endpoint,
		ForcePathStyle: cfg.ObjectStore.ForcePathStyle,
		Root:           cfg.ObjectStore.Root,
	})
	if err != nil {
		log.Error("object store", zap.Error(err))
		return 1
	}

	u := upload.Uploader{
		Store:     store,
		Bucket:    cfg.Bucket,
		RawPrefix: cfg.Layout.RawPrefix,
		Workers:   cfg.Upload.Workers,
		Log:       log,
	}
	keys, err := u.Dir(ctx, o.dir)
	if err != nil {
		log.Error("upload", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, k := range keys {
		fmt.Fprintf(stdout, "Uploaded to s3://%s/%s\n", cfg.Bucket, k)
	}
	log.Info("upload finished", zap.Int("objects", len(keys)), zap.String("dir", o.dir))
	return 0
}
