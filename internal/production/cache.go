package production

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProducibleCache keeps producibility answers in Redis for a short TTL.
// A nil cache is a valid no-op; everything falls through to a fresh compute.
type ProducibleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProducibleCache constructs the cache. TTL defaults to 30 seconds.
func NewProducibleCache(client *redis.Client, ttl time.Duration) *ProducibleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProducibleCache{client: client, ttl: ttl}
}

func producibleKey(productID int64) string {
	return fmt.Sprintf("harvest:producible:%d", productID)
}

// Get returns the cached quantity and whether it was present. Redis errors
// count as a miss; the cache never blocks a computation.
func (c *ProducibleCache) Get(ctx context.Context, productID int64) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, producibleKey(productID)).Result()
	if err != nil {
		return 0, false
	}
	qty, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return qty, true
}

// Set stores the quantity for the configured TTL.
func (c *ProducibleCache) Set(ctx context.Context, productID, qty int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, producibleKey(productID), strconv.FormatInt(qty, 10), c.ttl).Err()
}

// Invalidate drops cached entries after a stock mutation.
func (c *ProducibleCache) Invalidate(ctx context.Context, productIDs ...int64) {
	if c == nil || c.client == nil || len(productIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, producibleKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return
	}
}
