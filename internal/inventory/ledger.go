// Package inventory is the authoritative stock ledger. Every debit happens as
// a single conditional UPDATE so concurrent reservations against the same
// product serialize at the row and stock can never go negative.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InsufficientStockError is a recoverable condition, not a fault: the caller
// decides whether to surface it or retry with a smaller quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Reservation is one line of a pending debit.
type Reservation struct {
	ProductID string
	Quantity  int
}

type Ledger struct{ DB *pgxpool.Pool }

// ReserveTx debits qty from the product inside the caller's transaction.
// The WHERE clause carries the invariant: the row is only updated when enough
// stock remains, so there is no read-then-write window.
func (l *Ledger) ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve: quantity must be positive, got %d", qty)
	}
	ct, err := tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1`, productID).Scan(&available)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

// ReserveAllTx applies every reservation or none: the first failure is
// returned and the caller rolls the transaction back. Rows are locked in
// product-id order so overlapping checkouts cannot deadlock.
func (l *Ledger) ReserveAllTx(ctx context.Context, tx pgx.Tx, items []Reservation) error {
	sorted := make([]Reservation, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, it := range sorted {
		if err := l.ReserveTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseTx credits qty back. A vanished product row is not an error; the
// historical order item outlives the product.
func (l *Ledger) ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release: quantity must be positive, got %d", qty)
	}
	_, err := tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	return err
}
