package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pranjay/orders-core/internal/apperr"
	"github.com/pranjay/orders-core/internal/inventory"
)

type Repo struct {
	DB     *pgxpool.Pool
	Ledger *inventory.Ledger
	Prefix string
}

const orderCols = `id, order_number, COALESCE(user_id::text,''), COALESCE(customer_email,''),
	COALESCE(shipping_address_id::text,''),
	status, payment_status, COALESCE(payment_method,''), COALESCE(notes,''),
	subtotal, discount_amount, shipping_amount, tax_amount, total_amount,
	placed_at, shipped_at, delivered_at, created_at, updated_at`

// Place commits the order, its item snapshots, every stock debit and the cart
// cleanup as one transaction. A failed reservation rolls the whole thing back:
// no partial debit survives a failed checkout.
//
// An order-number collision aborts the transaction via the unique index; the
// whole attempt is retried once with a fresh number, then treated as fatal.
func (r *Repo) Place(ctx context.Context, ord *Order, items []OrderItem) error {
	for attempt := 0; ; attempt++ {
		err := r.placeTx(ctx, ord, items)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err, "orders_order_number_key") {
			if attempt == 0 {
				ord.Number = NewNumber(r.Prefix, time.Now())
				continue
			}
			return apperr.Conflict("order number collision")
		}
		return err
	}
}

func (r *Repo) placeTx(ctx context.Context, ord *Order, items []OrderItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	reservations := make([]inventory.Reservation, 0, len(items))
	for _, it := range items {
		reservations = append(reservations, inventory.Reservation{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if err := r.Ledger.ReserveAllTx(ctx, tx, reservations); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, user_id, customer_email, shipping_address_id, status, payment_status,
			payment_method, notes, subtotal, discount_amount, shipping_amount, tax_amount, total_amount, placed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		ord.ID, ord.Number, ord.UserID, ord.CustomerEmail, ord.ShippingAddressID, ord.Status, ord.PaymentStatus,
		ord.PaymentMethod, ord.Notes, ord.Subtotal, ord.DiscountAmount, ord.ShippingAmount,
		ord.TaxAmount, ord.TotalAmount, ord.PlacedAt).
		Scan(&ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return err
	}

	productIDs := make([]string, 0, len(items))
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = ord.ID
		productIDs = append(productIDs, items[i].ProductID)
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, product_sku, unit_price, quantity, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			items[i].ID, ord.ID, items[i].ProductID, items[i].ProductName, items[i].ProductSKU,
			items[i].UnitPrice, items[i].Quantity, items[i].TotalPrice); err != nil {
			return err
		}
	}

	// only the lines that were checked out leave the cart
	if _, err := tx.Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND product_id = ANY($2)`,
		ord.UserID, productIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ord.Items = items
	return nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID)
	ord, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, COALESCE(product_id::text,''), product_name, product_sku, unit_price, quantity, total_price
		FROM order_items WHERE order_id=$1 ORDER BY product_sku`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
			&it.UnitPrice, &it.Quantity, &it.TotalPrice); err != nil {
			return nil, err
		}
		ord.Items = append(ord.Items, it)
	}
	return ord, rows.Err()
}

type Filter struct {
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	Page          int
	PageSize      int
}

func (r *Repo) List(ctx context.Context, f Filter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}

	where, args := "TRUE", []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND o.user_id=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND o.status=$%d", len(args))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		where += fmt.Sprintf(" AND o.payment_status=$%d", len(args))
	}

	page := Page{Items: []Summary{}, Page: f.Page, PageSize: f.PageSize}
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders o WHERE `+where, args...).Scan(&page.Total)
	if err != nil {
		return page, err
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.order_number, o.status, o.payment_status, o.total_amount,
			(SELECT COUNT(*) FROM order_items i WHERE i.order_id=o.id),
			o.placed_at, o.created_at
		FROM orders o WHERE %s
		ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Number, &s.Status, &s.PaymentStatus, &s.TotalAmount,
			&s.ItemsCount, &s.PlacedAt, &s.CreatedAt); err != nil {
			return page, err
		}
		page.Items = append(page.Items, s)
	}
	return page, rows.Err()
}

// UpdateStatus drives the fulfilment state machine. Cancellation is not a
// plain status write because it compensates the ledger; it has its own path.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	if !ValidStatus(to) {
		return nil, apperr.BadRequestf("unknown status %q", to)
	}
	if to == StatusCancelled {
		return nil, apperr.BadRequest("use the cancel operation to cancel an order")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cur Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order")
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur, to) {
		return nil, apperr.BadRequestf("invalid status transition %s -> %s", cur, to)
	}

	now := time.Now().UTC()
	var shippedAt, deliveredAt *time.Time
	switch to {
	case StatusShipped:
		shippedAt = &now
	case StatusDelivered:
		deliveredAt = &now
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2,
			shipped_at=COALESCE($3, shipped_at),
			delivered_at=COALESCE($4, delivered_at),
			updated_at=now()
		WHERE id=$1`, orderID, to, shippedAt, deliveredAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

// UpdatePaymentStatus records the external payment signal. Payment
// confirmation is the trigger for order confirmation, so paid pulls the order
// to confirmed when the machine allows it.
func (r *Repo) UpdatePaymentStatus(ctx context.Context, orderID string, ps PaymentStatus) (*Order, error) {
	if !ValidPaymentStatus(ps) {
		return nil, apperr.BadRequestf("unknown payment status %q", ps)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cur Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order")
	}
	if err != nil {
		return nil, err
	}

	next := cur
	if ps == PaymentPaid && CanTransition(cur, StatusConfirmed) {
		next = StatusConfirmed
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET payment_status=$2, status=$3, updated_at=now() WHERE id=$1`,
		orderID, ps, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

// Cancel flips the order to its terminal cancelled state and credits back
// exactly the quantities the checkout reserved, all in one transaction. The
// row lock makes a concurrent double cancel observe the terminal state and
// fail the CanCancel check, so stock is never credited twice.
//
// requestingUserID empty means an administrative cancel; otherwise ownership
// is enforced and a mismatch reads as not-found.
func (r *Repo) Cancel(ctx context.Context, orderID, requestingUserID string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ownerID string
	var cur Status
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(user_id::text,''), status FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&ownerID, &cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order")
	}
	if err != nil {
		return nil, err
	}
	if requestingUserID != "" && ownerID != requestingUserID {
		return nil, apperr.NotFound("order")
	}
	if !CanCancel(cur) {
		return nil, apperr.BadRequest("cannot cancel order at this stage")
	}

	rows, err := tx.Query(ctx, `
		SELECT COALESCE(product_id::text,''), quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	type line struct {
		productID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, l := range lines {
		if l.productID == "" {
			continue // product deleted since; nothing to credit
		}
		if err := r.Ledger.ReleaseTx(ctx, tx, l.productID, l.qty); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

// Stats aggregates order counts and paid revenue for the admin dashboard.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	st := Stats{StatusCounts: map[Status]int{}}
	for s := range validNext {
		st.StatusCounts[s] = 0
	}

	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return st, err
		}
		st.StatusCounts[s] = n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status=$1`, PaymentPaid).
		Scan(&st.TotalRevenue)
	if err != nil {
		return st, err
	}

	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE created_at >= date_trunc('day', now())`).
		Scan(&st.OrdersToday)
	return st, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.CustomerEmail, &o.ShippingAddressID, &o.Status, &o.PaymentStatus,
		&o.PaymentMethod, &o.Notes, &o.Subtotal, &o.DiscountAmount, &o.ShippingAmount,
		&o.TaxAmount, &o.TotalAmount, &o.PlacedAt, &o.ShippedAt, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
