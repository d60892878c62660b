// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local is a single file on the local disk.
type Local struct{ path string }

func NewLocal(path string) *Local { return &Local{path: path} }

func (l *Local) Name() string { return l.path }

// Base returns the file name without directory or extension.
func (l *Local) Base() string {
	b := filepath.Base(l.path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

// Ext returns the lowercased extension including the dot.
func (l *Local) Ext() string { return strings.ToLower(filepath.Ext(l.path)) }

// Open returns the context error without touching the filesystem when ctx is
// already done. Filesystem errors keep their identity for errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Dir lists the regular files directly inside dir whose extension is one of
// exts (case-insensitive), sorted by name. Subdirectories are not visited.
func Dir(dir string, exts ...string) ([]*Local, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	var out []*Local
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		l := NewLocal(filepath.Join(dir, e.Name()))
		if len(want) > 0 && !want[l.Ext()] {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}
