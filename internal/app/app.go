package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"qrgen/internal/cache"
	"qrgen/internal/compose"
	"qrgen/internal/config"
	"qrgen/internal/encoder"
	"qrgen/internal/handlers"
	"qrgen/internal/httpserver"
	"qrgen/internal/interfaces"
	"qrgen/internal/logo"
	"qrgen/internal/metrics"
	"qrgen/internal/pipeline"
	"qrgen/internal/qr"
	"qrgen/internal/workers"
)

const redisPingTimeout = 3 * time.Second

type options struct {
	cache      interfaces.Cache
	httpClient *http.Client
}

type Option func(*options)

// WithCache replaces the configured cache backend.
func WithCache(c interfaces.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithHTTPClient replaces the pooled client used for logo fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// App is the wired service.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Orchestrator *pipeline.Orchestrator
	Handler      http.Handler

	closers []func() error
}

// New builds every component from cfg. Close releases what it opened.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	metrics.Register()

	a := &App{Config: cfg, Logger: logger}

	level, err := qr.ParseRecoveryLevel(cfg.Render.RecoveryLevel)
	if err != nil {
		return nil, err
	}

	fetcher, err := logo.NewFetcher(logo.Config{
		Timeout:             cfg.Logo.Timeout,
		MaxIdleConns:        cfg.Logo.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Logo.MaxIdleConnsPerHost,
		MaxBytes:            cfg.Logo.MaxBytes,
		HTTPClient:          o.httpClient,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("logo fetcher: %w", err)
	}
	a.closers = append(a.closers, fetcher.Close)

	resultCache := o.cache
	backend := "injected"
	if resultCache == nil {
		backend = cfg.Cache.Backend
		resultCache, err = a.buildCache(cfg.Cache)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	orch, err := pipeline.New(pipeline.Deps{
		Renderer: qr.NewRenderer(level),
		Fetcher:  fetcher,
		Composer: compose.NewComposer(),
		Encoder:  encoder.NewEncoder(),
		Cache:    cache.NewLoggingCache(resultCache, backend),
		Pool:     workers.New(cfg.Render.Workers, logger),
		Variant:  fmt.Sprintf("qr:%d", level),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Orchestrator = orch

	a.Handler = httpserver.NewRouter(logger, handlers.NewQRCodeHandler(orch), httpserver.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	logger.Info("app_initialized",
		zap.String("cache_backend", backend),
		zap.Int("cache_capacity", cfg.Cache.Capacity),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("recovery_level", cfg.Render.RecoveryLevel),
	)

	return a, nil
}

func (a *App) buildCache(cfg config.CacheConfig) (interfaces.Cache, error) {
	var redisClient *redis.Client
	if cfg.Backend == cache.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, redisClient.Close)

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
	}

	c, err := cache.New(cache.Config{
		Backend:         cfg.Backend,
		TTL:             cfg.TTL,
		Capacity:        cfg.Capacity,
		CleanupInterval: cfg.CleanupInterval,
		Prefix:          cfg.Prefix,
	}, redisClient)
	if err != nil {
		return nil, err
	}
	if mc, ok := c.(*cache.MemoryCache); ok {
		a.closers = append(a.closers, mc.Close)
	}
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
