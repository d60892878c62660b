// Package relocate moves every object under one prefix of a bucket to
// another prefix, keeping the relative key. It backs the archival handler
// that clears raw/ after a run.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
)

// ErrMissingParameters is returned when a request lacks a required field.
var ErrMissingParameters = errors.New("missing required parameters: bucket, source_prefix, destination_prefix")

// Request is the handler event.
type Request struct {
	Bucket            string `json:"bucket"`
	SourcePrefix      string `json:"source_prefix"`
	DestinationPrefix string `json:"destination_prefix"`
}

// Result reports what was moved.
type Result struct {
	Moved   int    `json:"moved"`
	Message string `json:"message"`
}

// Mover relocates objects within a bucket.
type Mover struct {
	Store objectstore.Store
	Log   *zap.Logger
}

// Move copies each object under req.SourcePrefix to the same relative key
// under req.DestinationPrefix and deletes the source. A folder marker equal
// to the source prefix is left alone. Errors stop the move; objects already
// moved stay moved.
func (m Mover) Move(ctx context.Context, req Request) (Result, error) {
	if req.Bucket == "" || req.SourcePrefix == "" || req.DestinationPrefix == "" {
		return Result{}, ErrMissingParameters
	}
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("bucket", req.Bucket))
	log.Info("moving objects", zap.String("from", req.SourcePrefix), zap.String("to", req.DestinationPrefix))

	objs, err := m.Store.List(ctx, req.Bucket, req.SourcePrefix)
	if err != nil {
		return Result{}, fmt.Errorf("list %s: %w", req.SourcePrefix, err)
	}
	if len(objs) == 0 {
		log.Info("no objects found", zap.String("prefix", req.SourcePrefix))
		return Result{Message: fmt.Sprintf("No files to move in %s", req.SourcePrefix)}, nil
	}

	moved := 0
	for _, o := range objs {
		if o.Key == req.SourcePrefix {
			continue
		}
		dst := Destination(req, o.Key)
		log.Debug("moving object", zap.String("src", o.Key), zap.String("dst", dst))
		if err := m.Store.Copy(ctx, req.Bucket, o.Key, dst); err != nil {
			return Result{Moved: moved}, fmt.Errorf("copy %s to %s: %w", o.Key, dst, err)
		}
		if err := m.Store.Delete(ctx, req.Bucket, o.Key); err != nil {
			return Result{Moved: moved}, fmt.Errorf("delete %s: %w", o.Key, err)
		}
		moved++
	}

	msg := fmt.Sprintf("Successfully moved %d files from %s to %s", moved, req.SourcePrefix, req.DestinationPrefix)
	log.Info(msg)
	return Result{Moved: moved, Message: msg}, nil
}

// Destination maps a source key to its destination key.
func Destination(req Request, key string) string {
	return req.DestinationPrefix + strings.TrimPrefix(key, req.SourcePrefix)
}
