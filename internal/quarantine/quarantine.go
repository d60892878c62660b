// Package quarantine writes rejected rows next to the raw data so they can be
// inspected and replayed. Each write replaces whatever the previous run left
// under the dataset's rejected prefix.
package quarantine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// PartName is the object written under the rejected prefix.
const PartName = "part-00000.csv"

// Writer writes rejected frames to an object store.
type Writer struct {
	Store  objectstore.Store
	Bucket string
	// Header adds a column-name row. Off by default.
	Header bool
}

// Write deletes every object under prefix and then writes f as a single CSV
// part. It returns the key written. An empty frame still produces an empty
// part so the prefix always reflects the latest run.
func (w Writer) Write(ctx context.Context, prefix string, f *records.Frame) (string, error) {
	dir := objectstore.Dir(prefix)
	if _, err := objectstore.DeletePrefix(ctx, w.Store, w.Bucket, dir); err != nil {
		return "", fmt.Errorf("quarantine: clear %s: %w", dir, err)
	}

	body, err := Encode(f, w.Header)
	if err != nil {
		return "", fmt.Errorf("quarantine: encode: %w", err)
	}
	key := dir + PartName
	if err := w.Store.Put(ctx, w.Bucket, key, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("quarantine: write %s: %w", key, err)
	}
	return key, nil
}

// Encode renders f as CSV with values in column order and nulls as empty
// cells.
func Encode(f *records.Frame, header bool) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if header {
		if err := cw.Write(f.Names()); err != nil {
			return nil, err
		}
	}
	row := make([]string, len(f.Columns))
	for _, r := range f.Rows {
		for i, c := range f.Columns {
			row[i] = records.Format(c.Type, r[c.Name])
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
