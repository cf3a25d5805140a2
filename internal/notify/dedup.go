package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pranjay/orders-core/internal/redisx"
)

// RedisDeduper implements at-most-once delivery per event id with a TTL'd
// redis key. SET NX is the check and the record in one round trip.
type RedisDeduper struct{ Redis *redis.Client }

func (d *RedisDeduper) SeenBefore(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf(redisx.KeyDedup, eventID)
	set, err := d.Redis.SetNX(ctx, key, "1", redisx.TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
