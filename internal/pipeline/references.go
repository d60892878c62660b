package pipeline

import (
	"fmt"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/transformer/builtin"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Foreign keys from order_items.
const (
	OrderIDColumn   = "order_id"
	ProductIDColumn = "product_id"
)

// CheckReferences keeps the line items whose order and product both exist
// among the valid orders and products. It returns the kept items and how
// many were dropped; dropped rows are not quarantined.
func CheckReferences(orders, products, items *records.Frame) (*records.Frame, int, error) {
	if err := orders.Has(OrderIDColumn); err != nil {
		return nil, 0, fmt.Errorf("orders: %w", err)
	}
	if err := products.Has(ProductIDColumn); err != nil {
		return nil, 0, fmt.Errorf("products: %w", err)
	}
	if err := items.Has(OrderIDColumn, ProductIDColumn); err != nil {
		return nil, 0, fmt.Errorf("order_items: %w", err)
	}

	join := transformer.Chain{
		builtin.SemiJoin{Key: OrderIDColumn, Keys: builtin.IDs(orders.Rows, OrderIDColumn)},
		builtin.SemiJoin{Key: ProductIDColumn, Keys: builtin.IDs(products.Rows, ProductIDColumn)},
	}
	kept := join.Apply(items.Rows)
	return items.WithRows(kept), items.Len() - len(kept), nil
}
