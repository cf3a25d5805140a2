package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/catalog"
)

type Repo struct {
	DB      *pgxpool.Pool
	Catalog *catalog.Repo
}

func (r *Repo) Lines(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT user_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// View joins lines with their products for display. Lines whose product has
// disappeared are skipped rather than failing the whole cart.
func (r *Repo) View(ctx context.Context, userID string) ([]LineView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.product_id, p.name, p.sku, p.selling_price, c.quantity
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id=$1 ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineView
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ProductID, &v.ProductName, &v.ProductSKU, &v.UnitPrice, &v.Quantity); err != nil {
			return nil, err
		}
		v.TotalPrice = v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
		out = append(out, v)
	}
	return out, rows.Err()
}

// Add upserts a line, accumulating quantity when the product is already in
// the cart.
func (r *Repo) Add(ctx context.Context, userID, productID string, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, apperr.BadRequest("quantity must be at least 1")
	}
	p, err := r.Catalog.Product(ctx, productID)
	if err != nil {
		return Line{}, err
	}

	var existing int
	err = r.DB.QueryRow(ctx, `
		SELECT quantity FROM cart_items WHERE user_id=$1 AND product_id=$2`,
		userID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Line{}, err
	}

	if err := ValidateQuantity(p, existing+qty); err != nil {
		return Line{}, err
	}

	var l Line
	err = r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING user_id, product_id, quantity, created_at, updated_at`,
		userID, productID, qty).
		Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Update replaces a line's quantity.
func (r *Repo) Update(ctx context.Context, userID, productID string, qty int) (Line, error) {
	p, err := r.Catalog.Product(ctx, productID)
	if err != nil {
		return Line{}, err
	}
	if err := ValidateQuantity(p, qty); err != nil {
		return Line{}, err
	}

	var l Line
	err = r.DB.QueryRow(ctx, `
		UPDATE cart_items SET quantity=$3, updated_at=now()
		WHERE user_id=$1 AND product_id=$2
		RETURNING user_id, product_id, quantity, created_at, updated_at`,
		userID, productID, qty).
		Scan(&l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, apperr.NotFound("cart item")
	}
	return l, err
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item")
	}
	return nil
}
