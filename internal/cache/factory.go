package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qrgen/internal/interfaces"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Backend         string
	TTL             time.Duration
	Capacity        int
	CleanupInterval time.Duration
	Prefix          string
}

// New builds the configured backend. redisClient is only used, and then
// required, for the redis backend.
func New(cfg Config, redisClient *redis.Client) (interfaces.Cache, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisCache(redisClient, RedisConfig{
			Prefix:   cfg.Prefix,
			TTL:      cfg.TTL,
			Capacity: cfg.Capacity,
		})
	case BackendMemory, "":
		return NewMemoryCache(MemoryConfig{
			Capacity:        cfg.Capacity,
			TTL:             cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		})
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
