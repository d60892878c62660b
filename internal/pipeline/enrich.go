package pipeline

import (
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer/builtin"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Enrich parses the dataset's timestamp column with layout and appends the
// order_date partition column. Datasets without a timestamp column are
// returned unchanged.
func Enrich(f *records.Frame, ds schema.Dataset, layout string) (*records.Frame, error) {
	if !ds.Enriched() {
		return f, nil
	}
	if err := f.Has(ds.TimestampColumn); err != nil {
		return nil, err
	}
	out := records.NewFrame(f.Columns)
	out.SetColumn(records.Column{Name: ds.TimestampColumn, Type: records.Timestamp, Nullable: true})
	out.SetColumn(records.Column{Name: schema.OrderDate, Type: records.Date, Nullable: true})
	out.Rows = builtin.Timestamp{
		Column:     ds.TimestampColumn,
		Layout:     layout,
		DateColumn: schema.OrderDate,
	}.Apply(f.Rows)
	return out, nil
}
