package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"qrgen/internal/models"
)

// setScript writes the entry with a TTL, records it in the insertion index,
// drops index members that are already past TTL, then deletes the oldest
// entries until the index fits capacity.
//
// KEYS[1] entry key, KEYS[2] index key
// ARGV[1] payload, ARGV[2] ttl ms, ARGV[3] now ms, ARGV[4] expired-before ms, ARGV[5] capacity
var setScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], KEYS[1])
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[4])
local excess = redis.call('ZCARD', KEYS[2]) - tonumber(ARGV[5])
if excess > 0 then
  local victims = redis.call('ZRANGE', KEYS[2], '0', tostring(excess - 1))
  for _, k in ipairs(victims) do
    redis.call('DEL', k)
  end
  redis.call('ZREM', KEYS[2], unpack(victims))
  return excess
end
return 0
`)

// RedisCache implements Cache on a shared Redis. Expiry is native (PX);
// capacity is enforced on write, evicting oldest insertions first.
type RedisCache struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

type RedisConfig struct {
	Prefix   string
	TTL      time.Duration
	Capacity int
	Now      func() time.Time
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, config RedisConfig) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("cache: redis backend requires a client")
	}
	if config.Capacity < 0 {
		return nil, errors.New("cache: capacity must not be negative")
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RedisCache{
		client:   client,
		prefix:   config.Prefix,
		ttl:      config.TTL,
		capacity: config.Capacity,
		now:      config.Now,
	}, nil
}

// Both keys share a hash tag so the script stays on one cluster slot.
func (c *RedisCache) entryKey(fp models.Fingerprint) string {
	return "{" + c.prefix + "}:entry:" + fp.String()
}

func (c *RedisCache) indexKey() string {
	return "{" + c.prefix + "}:index"
}

// Get retrieves a value from Redis cache.
// On Redis error, it returns (nil, false, err) so caller can log and treat as miss.
func (c *RedisCache) Get(ctx context.Context, fp models.Fingerprint) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	res, err := c.client.Get(ctx, c.entryKey(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	return res, true, nil
}

// Set stores a value with the configured TTL. With zero capacity it does nothing.
func (c *RedisCache) Set(ctx context.Context, fp models.Fingerprint, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if c.capacity == 0 {
		return nil
	}

	now := c.now().UnixMilli()
	ttl := c.ttl.Milliseconds()
	if ttl < 1 {
		ttl = 1
	}

	err := setScript.Run(ctx, c.client,
		[]string{c.entryKey(fp), c.indexKey()},
		value,
		strconv.FormatInt(ttl, 10),
		strconv.FormatInt(now, 10),
		strconv.FormatInt(now-ttl, 10),
		strconv.Itoa(c.capacity),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Ping checks if Redis connection is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return c.client.Ping(ctx).Err()
}
