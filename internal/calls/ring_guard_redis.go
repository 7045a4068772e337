package calls

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/niggl1/interfoneapp/pkg/utils"
)

// RedisRingGuard caps concurrent RINGING calls per receiver across all API
// instances. Slots carry a TTL so a crashed process cannot leave a receiver
// permanently busy; size it comfortably above the ring timeout.
type RedisRingGuard struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisRingGuard(rdb *redis.Client, limit int, ttl time.Duration) *RedisRingGuard {
	return &RedisRingGuard{rdb: rdb, limit: limit, ttl: ttl}
}

func (g *RedisRingGuard) Acquire(ctx context.Context, receiverID string) (bool, error) {
	return utils.AcquireRingSlot(ctx, g.rdb, "ring:"+receiverID, g.limit, g.ttl)
}

func (g *RedisRingGuard) Release(ctx context.Context, receiverID string) error {
	return utils.ReleaseRingSlot(ctx, g.rdb, "ring:"+receiverID)
}
