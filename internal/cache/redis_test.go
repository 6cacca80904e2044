package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T, capacity int, clock *fakeClock) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := NewRedisCache(client, RedisConfig{
		Prefix:   "test",
		TTL:      5 * time.Minute,
		Capacity: capacity,
		Now:      clock.Now,
	})
	require.NoError(t, err)
	return c, mr
}

func entryKeys(mr *miniredis.Miniredis) []string {
	var out []string
	for _, k := range mr.Keys() {
		if strings.Contains(k, ":entry:") {
			out = append(out, k)
		}
	}
	return out
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestRedisCache(t, 10, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, fp(1), []byte("payload")))

	got, hit, err := c.Get(ctx, fp(1))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("payload"), got)

	_, hit, err = c.Get(ctx, fp(2))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newTestRedisCache(t, 10, newFakeClock())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, fp(1), []byte("payload")))

	mr.FastForward(5*time.Minute - time.Second)
	_, hit, err := c.Get(ctx, fp(1))
	require.NoError(t, err)
	assert.True(t, hit)

	mr.FastForward(time.Second)
	_, hit, err = c.Get(ctx, fp(1))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_CapacityEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c, mr := newTestRedisCache(t, 3, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(ctx, fp(i), []byte{byte(i)}))
		clock.Advance(time.Millisecond)
	}

	assert.Len(t, entryKeys(mr), 3)
	for i := 0; i < 2; i++ {
		_, hit, err := c.Get(ctx, fp(i))
		require.NoError(t, err)
		assert.False(t, hit, "key %d should be evicted", i)
	}
	for i := 2; i < 5; i++ {
		_, hit, err := c.Get(ctx, fp(i))
		require.NoError(t, err)
		assert.True(t, hit, "key %d should survive", i)
	}
}

func TestRedisCache_ZeroCapacity(t *testing.T) {
	c, mr := newTestRedisCache(t, 0, newFakeClock())
	require.NoError(t, c.Set(context.Background(), fp(1), []byte("x")))
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_Unavailable(t *testing.T) {
	c, mr := newTestRedisCache(t, 10, newFakeClock())
	mr.Close()

	_, hit, err := c.Get(context.Background(), fp(1))
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, c.Set(context.Background(), fp(1), []byte("x")))
}

func TestRedisCache_CanceledContext(t *testing.T) {
	c, _ := newTestRedisCache(t, 10, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Get(ctx, fp(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisCache_Ping(t *testing.T) {
	c, _ := newTestRedisCache(t, 10, newFakeClock())
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewRedisCache_RequiresClient(t *testing.T) {
	_, err := NewRedisCache(nil, RedisConfig{Capacity: 1})
	assert.Error(t, err)
}
