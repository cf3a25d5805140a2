// Package address resolves shipping addresses. Storage of the address book is
// outside the order engine; checkout only needs ownership-checked lookup.
package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pranjay/orders-core/internal/apperr"
)

type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Repo struct{ DB *pgxpool.Pool }

// Resolve returns the address only when it belongs to the user; anything else
// is a not-found so existence does not leak across accounts.
func (r *Repo) Resolve(ctx context.Context, addressID, userID string) (Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, line1, COALESCE(line2,''), city, state, postal_code, country
		FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID).
		Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, apperr.NotFound("shipping address")
	}
	return a, err
}
