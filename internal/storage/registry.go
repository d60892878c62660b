package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
)

// ErrUnknownKind is returned by New for a kind nobody registered.
var ErrUnknownKind = errors.New("storage: unknown kind")

// Config is the storage-agnostic input to a backend factory.
type Config struct {
	Kind string
	DSN  string
	// DataPath is where a lakehouse backend keeps its data files, e.g.
	// s3://bucket/processed/.
	DataPath string
	Region   string
	Endpoint string
	Options  config.Options
}

// Factory opens a TableStore for cfg.
type Factory func(ctx context.Context, cfg Config) (TableStore, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// again replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (TableStore, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownKind, cfg.Kind, ListKinds())
	}
	if cfg.Options == nil {
		cfg.Options = config.Options{}
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
