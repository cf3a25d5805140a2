package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/catalog"
)

// Line is one (user, product) pending quantity. Price is never stored here;
// checkout re-reads the product's current selling price.
type Line struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineView is a Line joined with its product for cart display.
type LineView struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ValidateQuantity checks a desired line quantity against the product's
// ordering rules. Stock is only a ceiling hint here; the real guarantee is the
// ledger's conditional debit at checkout.
func ValidateQuantity(p catalog.Product, qty int) error {
	if !p.IsActive {
		return apperr.BadRequestf("product not available: %s", p.ID)
	}
	if qty < 1 {
		return apperr.BadRequest("quantity must be at least 1")
	}
	if qty < p.MinOrderQuantity {
		return apperr.BadRequestf("minimum order quantity is %d", p.MinOrderQuantity)
	}
	if qty > p.StockQuantity {
		return apperr.BadRequestf("only %d units available in stock", p.StockQuantity)
	}
	return nil
}
