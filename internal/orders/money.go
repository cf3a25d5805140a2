package orders

import "github.com/shopspring/decimal"

// taxRate is a fixed 18% GST applied to the subtotal.
var taxRate = decimal.New(18, -2)

// LineTotal computes unit_price x quantity rounded half-up to 2 minor-unit
// digits.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals derives order money from the item snapshots. Shipping is
// currently always zero; the identity total = subtotal + shipping + tax holds
// exactly in fixed point.
func ComputeTotals(items []OrderItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalPrice)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	shipping := decimal.Zero.Round(2)
	return Totals{
		Subtotal: subtotal,
		Discount: decimal.Zero.Round(2),
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
