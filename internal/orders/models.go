package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is immutable after creation except for status, payment status and the
// lifecycle timestamps. Money fields are fixed at checkout time.
type Order struct {
	ID                string          `json:"id"`
	Number            string          `json:"order_number"`
	UserID            string          `json:"user_id,omitempty"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	ShippingAddressID string          `json:"shipping_address_id,omitempty"`
	Status            Status          `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	ShippingAmount    decimal.Decimal `json:"shipping_amount"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PlacedAt          *time.Time      `json:"placed_at,omitempty"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Items             []OrderItem     `json:"items,omitempty"`
}

// OrderItem snapshots product identity and pricing at order time. ProductID is
// a weak reference: the product may later change or disappear without touching
// the historical record.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Summary is the light listing shape.
type Summary struct {
	ID            string          `json:"id"`
	Number        string          `json:"order_number"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemsCount    int             `json:"items_count"`
	PlacedAt      *time.Time      `json:"placed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Page struct {
	Items    []Summary `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// Stats feeds the admin dashboard.
type Stats struct {
	StatusCounts map[Status]int  `json:"status_counts"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	OrdersToday  int             `json:"orders_today"`
}
