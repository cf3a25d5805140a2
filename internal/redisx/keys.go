package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{user_id}:{external_id} -> order_id.
	// external_id is the client's token, so only a resubmission of the same
	// request short-circuits.
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Order read cache: order:{order_id} -> serialized order JSON.
	KeyOrder = "order:%s"

	// Event dedup for the notifier: dedup:notifier:{event_id}.
	KeyDedup = "dedup:notifier:%s"
)

var (
	TTLIdemCheckout = 2 * time.Minute
	TTLOrderCache   = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
