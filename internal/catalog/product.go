package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the ledger-relevant view of a catalog row. Stock is mutated only
// through inventory reserve/release; everything else is read-only here.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	SellingPrice     decimal.Decimal `json:"selling_price"`
	StockQuantity    int             `json:"stock_quantity"`
	MinOrderQuantity int             `json:"min_order_quantity"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
