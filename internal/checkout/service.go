// Package checkout converts a mutable cart into an immutable order. The
// orchestrator validates everything it can up front, then hands the storage
// layer one all-or-nothing transaction: stock debits, order row, item
// snapshots and cart cleanup commit together or not at all.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/address"
	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/cart"
	"github.com/pranjay/orders-core/internal/catalog"
	"github.com/pranjay/orders-core/internal/orders"
)

type AddressResolver interface {
	Resolve(ctx context.Context, addressID, userID string) (address.Address, error)
}

type CartReader interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
}

type CatalogReader interface {
	Product(ctx context.Context, productID string) (catalog.Product, error)
}

// OrderPlacer owns the checkout transaction boundary: reservations, order,
// items and cart cleanup are durable together or not at all.
type OrderPlacer interface {
	Place(ctx context.Context, ord *orders.Order, items []orders.OrderItem) error
}

// Events is the post-commit side-effect sink. Implementations must not fail
// the checkout; publishing happens strictly after the transaction commits.
type Events interface {
	OrderPlaced(ord *orders.Order, customer Customer)
}

// Customer is the verified identity attached to the request.
type Customer struct {
	ID    string
	Email string
	Name  string
}

type Request struct {
	ShippingAddressID string
	PaymentMethod     string
	Notes             string
}

type Service struct {
	Addresses AddressResolver
	Cart      CartReader
	Catalog   CatalogReader
	Orders    OrderPlacer
	Events    Events
	Prefix    string
	Log       *zap.Logger

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Checkout implements the conversion: resolve address, snapshot the cart
// against current catalog prices, then place atomically. Any failure leaves
// zero side effects.
func (s *Service) Checkout(ctx context.Context, customer Customer, req Request) (*orders.Order, error) {
	if _, err := s.Addresses.Resolve(ctx, req.ShippingAddressID, customer.ID); err != nil {
		return nil, err
	}

	lines, err := s.Cart.Lines(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperr.BadRequest("cart is empty")
	}

	items := make([]orders.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, err := s.Catalog.Product(ctx, l.ProductID)
		if err != nil {
			return nil, apperr.BadRequestf("product not available: %s", l.ProductID)
		}
		if !p.IsActive {
			return nil, apperr.BadRequestf("product not available: %s", l.ProductID)
		}
		if l.Quantity < p.MinOrderQuantity {
			return nil, apperr.BadRequestf("minimum order quantity for %s is %d", p.SKU, p.MinOrderQuantity)
		}
		// price and identity are snapshotted now; the cart never holds a price
		items = append(items, orders.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			UnitPrice:   p.SellingPrice,
			Quantity:    l.Quantity,
			TotalPrice:  orders.LineTotal(p.SellingPrice, l.Quantity),
		})
	}

	totals := orders.ComputeTotals(items)
	now := s.now()
	ord := &orders.Order{
		ID:                uuid.NewString(),
		Number:            orders.NewNumber(s.Prefix, now),
		UserID:            customer.ID,
		CustomerEmail:     customer.Email,
		ShippingAddressID: req.ShippingAddressID,
		Status:            orders.StatusPending,
		PaymentStatus:     orders.PaymentPending,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
		Subtotal:          totals.Subtotal,
		DiscountAmount:    totals.Discount,
		ShippingAmount:    totals.Shipping,
		TaxAmount:         totals.Tax,
		TotalAmount:       totals.Total,
		PlacedAt:          &now,
	}

	if err := s.Orders.Place(ctx, ord, items); err != nil {
		return nil, err
	}

	// past the transaction boundary: notification failure cannot unwind the order
	if s.Events != nil {
		s.Events.OrderPlaced(ord, customer)
	}
	if s.Log != nil {
		s.Log.Info("order placed",
			zap.String("order_id", ord.ID),
			zap.String("order_number", ord.Number),
			zap.String("user_id", customer.ID),
			zap.Int("items", len(items)),
			zap.String("total", ord.TotalAmount.StringFixed(2)),
		)
	}
	return ord, nil
}
