// Package schema is the static registry of the datasets handled by the job:
// their ordered CSV columns, natural keys, required columns and the
// partitioning used for their processed tables.
package schema

import (
	"fmt"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Field is one registered column. Field order is the CSV column order.
type Field struct {
	Name     string       `json:"name"`
	Type     records.Type `json:"type"`
	Required bool         `json:"required,omitempty"`
}

// Dataset is the contract for one record family.
type Dataset struct {
	Name   string
	Fields []Field

	// NaturalKey uniquely identifies a logical record; it is both the
	// de-duplication key and the merge key.
	NaturalKey []string

	// RequiredColumns must be non-null for a row to be valid.
	RequiredColumns []string

	// PartitionColumn physically subdivides the processed table.
	PartitionColumn string

	// TimestampColumn holds the textual event timestamp parsed during
	// enrichment; empty when the dataset is not enriched.
	TimestampColumn string
}

// Names of the registered datasets.
const (
	Orders     = "orders"
	OrderItems = "order_items"
	Products   = "products"
)

// Derived column added by enrichment and used for partitioning.
const OrderDate = "order_date"

var registry = []Dataset{
	{
		Name: Orders,
		Fields: []Field{
			{Name: "order_num", Type: records.Int},
			{Name: "order_id", Type: records.Int, Required: true},
			{Name: "user_id", Type: records.Int, Required: true},
			{Name: "order_timestamp", Type: records.Text, Required: true},
			{Name: "total_amount", Type: records.Float},
			{Name: "date", Type: records.Date, Required: true},
		},
		NaturalKey:      []string{"order_id"},
		RequiredColumns: []string{"order_id", "order_timestamp"},
		PartitionColumn: OrderDate,
		TimestampColumn: "order_timestamp",
	},
	{
		Name: OrderItems,
		Fields: []Field{
			{Name: "id", Type: records.Int, Required: true},
			{Name: "order_id", Type: records.Int, Required: true},
			{Name: "user_id", Type: records.Int, Required: true},
			{Name: "days_since_prior_order", Type: records.Int},
			{Name: "product_id", Type: records.Int, Required: true},
			{Name: "add_to_cart_order", Type: records.Int},
			{Name: "reordered", Type: records.Int},
			{Name: "order_timestamp", Type: records.Text, Required: true},
			{Name: "date", Type: records.Date, Required: true},
		},
		NaturalKey:      []string{"order_id", "product_id"},
		RequiredColumns: []string{"order_id", "product_id"},
		PartitionColumn: OrderDate,
		TimestampColumn: "order_timestamp",
	},
	{
		Name: Products,
		Fields: []Field{
			{Name: "product_id", Type: records.Int, Required: true},
			{Name: "department_id", Type: records.Int},
			{Name: "department", Type: records.Text},
			{Name: "product_name", Type: records.Text, Required: true},
		},
		NaturalKey:      []string{"product_id"},
		RequiredColumns: []string{"product_id"},
		PartitionColumn: "department_id",
	},
}

// Datasets returns the registered datasets in processing order.
func Datasets() []Dataset {
	out := make([]Dataset, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the dataset registered under name.
func Lookup(name string) (Dataset, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("schema: unknown dataset %q", name)
}

// Columns returns the dataset's raw column layout. Required fields are
// marked non-nullable; the reader still accepts empty cells and validation
// rejects them.
func (d Dataset) Columns() []records.Column {
	out := make([]records.Column, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = records.Column{Name: f.Name, Type: f.Type, Nullable: !f.Required}
	}
	return out
}

// Enriched reports whether the dataset goes through timestamp enrichment.
func (d Dataset) Enriched() bool { return d.TimestampColumn != "" }
