package production

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *ProducibleCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProducibleCache(client, time.Minute)
}

func TestProducibleCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 100)
	require.False(t, ok)

	cache.Set(ctx, 100, 7)
	qty, ok := cache.Get(ctx, 100)
	require.True(t, ok)
	require.Equal(t, int64(7), qty)

	cache.Invalidate(ctx, 100)
	_, ok = cache.Get(ctx, 100)
	require.False(t, ok)
}

func TestProducibleCacheNilIsNoop(t *testing.T) {
	var cache *ProducibleCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	require.False(t, ok)
	cache.Set(ctx, 1, 5)
	cache.Invalidate(ctx, 1)
}
