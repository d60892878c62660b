// Command relocate moves every object under a source prefix to a destination
// prefix in the same bucket. The event is read as JSON from --event or stdin:
//
//	{"bucket": "delta-lake-bkt01", "source_prefix": "raw/", "destination_prefix": "archive/"}
//
// and the response is printed as {"statusCode": 200, "body": "..."}.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/relocate"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/logger"
)

// Response mirrors the handler response shape.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit status: 0 on success, 1 on a failed move and
// 2 on bad flags.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("relocate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventPath := fs.String("event", "", "event JSON file (default stdin)")
	cfgPath := fs.String("config", "", "job config (json or yaml) for object store settings")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.Must()
	defer log.Sync()

	if err := move(ctx, log, *cfgPath, *eventPath, stdin, stdout); err != nil {
		log.Error("Error moving files", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func move(ctx context.Context, log *zap.Logger, cfgPath, eventPath string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	store, err := objectstore.Open(objectstore.Options{
		Kind:           cfg.ObjectStore.Kind,
		Region:         cfg.ObjectStore.Region,
		Endpoint:       cfg.ObjectStore.Endpoint,
		ForcePathStyle: cfg.ObjectStore.ForcePathStyle,
		Root:           cfg.ObjectStore.Root,
	})
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	return handle(ctx, relocate.Mover{Store: store, Log: log}, eventPath, stdin, stdout)
}

func handle(ctx context.Context, m relocate.Mover, eventPath string, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if eventPath != "" {
		f, err := os.Open(eventPath)
		if err != nil {
			return fmt.Errorf("open event: %w", err)
		}
		defer f.Close()
		in = f
	}
	var req relocate.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	res, err := m.Move(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(Response{StatusCode: 200, Body: res.Message})
}
