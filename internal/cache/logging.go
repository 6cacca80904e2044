package cache

import (
	"context"
	"time"

	"qrgen/internal/interfaces"
	"qrgen/internal/metrics"
	"qrgen/internal/models"
	"qrgen/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingCache wraps a cache backend with logging + metrics.
type LoggingCache struct {
	inner   interfaces.Cache
	backend string
}

// NewLoggingCache returns a cache that logs and records metrics.
func NewLoggingCache(inner interfaces.Cache, backend string) interfaces.Cache {
	return &LoggingCache{inner: inner, backend: backend}
}

func (c *LoggingCache) Get(ctx context.Context, fp models.Fingerprint) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, fp)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(result).Inc()

	fields := []zap.Field{
		zap.String("cache_backend", c.backend),
		zap.String("fingerprint", fp.String()),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Warn("cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingCache) Set(ctx context.Context, fp models.Fingerprint, value []byte) error {
	start := time.Now()
	err := c.inner.Set(ctx, fp, value)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CacheStoresTotal.WithLabelValues(result).Inc()

	fields := []zap.Field{
		zap.String("cache_backend", c.backend),
		zap.String("fingerprint", fp.String()),
		zap.Int("bytes", len(value)),
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Warn("cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_set", fields...)
	}

	return err
}
