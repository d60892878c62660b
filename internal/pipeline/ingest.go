package pipeline

import (
	"context"
	"fmt"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/datasource"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/datasource/object"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/parser"
	csvparser "github.com/charles-amali/lakehouse-architecture-transaction/internal/parser/csv"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer/builtin"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Ingest reads every CSV object under prefix into one frame shaped by ds.
// Objects are read in key order; header rows are skipped and cells that do
// not parse as their column type become null. A prefix without any CSV
// object is an error.
func Ingest(ctx context.Context, store objectstore.Store, bucket, prefix string, ds schema.Dataset) (*records.Frame, error) {
	sources, err := object.ListCSV(ctx, store, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no csv objects under s3://%s/%s", bucket, prefix)
	}

	f := records.NewFrame(ds.Columns())
	var p parser.Parser = csvparser.NewParser(csvparser.Options{HasHeader: true, Columns: f.Names()})
	types := make(map[string]records.Type, len(f.Columns))
	for _, c := range f.Columns {
		types[c.Name] = c.Type
	}
	coerce := builtin.Coerce{Types: types}

	for _, src := range sources {
		rows, err := readSource(ctx, src, p)
		if err != nil {
			return nil, err
		}
		f.Rows = append(f.Rows, coerce.Apply(rows)...)
	}
	return f, nil
}

func readSource(ctx context.Context, src datasource.Source, p parser.Parser) ([]records.Record, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()
	rows, _, err := p.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	return rows, nil
}
