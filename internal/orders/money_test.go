package orders

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineTotal(t *testing.T) {
	cases := []struct {
		unit string
		qty  int
		want string
	}{
		{"100.00", 3, "300.00"},
		{"0.75", 3, "2.25"},
		{"19.99", 2, "39.98"},
		{"0.335", 1, "0.34"}, // half-up at the third minor digit
		{"0.125", 1, "0.13"},
	}
	for _, c := range cases {
		got := LineTotal(d(c.unit), c.qty)
		if !got.Equal(d(c.want)) {
			t.Errorf("LineTotal(%s, %d) = %s, want %s", c.unit, c.qty, got, c.want)
		}
	}
}

func TestComputeTotalsIdentity(t *testing.T) {
	items := []OrderItem{
		{UnitPrice: d("149.50"), Quantity: 2, TotalPrice: LineTotal(d("149.50"), 2)},
		{UnitPrice: d("75.25"), Quantity: 4, TotalPrice: LineTotal(d("75.25"), 4)},
		{UnitPrice: d("9.99"), Quantity: 1, TotalPrice: LineTotal(d("9.99"), 1)},
	}
	tot := ComputeTotals(items)

	if !tot.Subtotal.Equal(d("610.99")) {
		t.Fatalf("subtotal = %s, want 610.99", tot.Subtotal)
	}
	// 610.99 * 0.18 = 109.9782 -> 109.98
	if !tot.Tax.Equal(d("109.98")) {
		t.Fatalf("tax = %s, want 109.98", tot.Tax)
	}
	if !tot.Shipping.Equal(decimal.Zero) {
		t.Fatalf("shipping = %s, want 0", tot.Shipping)
	}
	if !tot.Total.Equal(tot.Subtotal.Add(tot.Shipping).Add(tot.Tax)) {
		t.Fatalf("total %s != subtotal %s + shipping %s + tax %s",
			tot.Total, tot.Subtotal, tot.Shipping, tot.Tax)
	}
}

func TestComputeTotalsTaxRoundsHalfUp(t *testing.T) {
	// subtotal 0.25 -> tax 0.045 -> rounds to 0.05, not 0.04
	items := []OrderItem{{UnitPrice: d("0.25"), Quantity: 1, TotalPrice: d("0.25")}}
	tot := ComputeTotals(items)
	if !tot.Tax.Equal(d("0.05")) {
		t.Fatalf("tax = %s, want 0.05 (half-up)", tot.Tax)
	}
	if !tot.Total.Equal(d("0.30")) {
		t.Fatalf("total = %s, want 0.30", tot.Total)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	tot := ComputeTotals(nil)
	if !tot.Subtotal.Equal(decimal.Zero) || !tot.Tax.Equal(decimal.Zero) || !tot.Total.Equal(decimal.Zero) {
		t.Fatalf("empty totals should be zero, got %+v", tot)
	}
}
