package orders

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// NewNumber builds a human-readable order number: <PREFIX>-<YYYYMMDD>-<8 hex>.
// The suffix comes from crypto/rand, so a collision within a day is
// cryptographically unlikely; the unique index on orders.order_number catches
// the residual case and the insert retries once with a fresh number.
func NewNumber(prefix string, now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform's entropy source is broken
		panic(err)
	}
	return prefix + "-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
