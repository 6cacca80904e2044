package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"qrgen/internal/cache"
	"qrgen/internal/qr"
)

// Config is the full service configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Logo   LogoConfig   `mapstructure:"logo"`
	Render RenderConfig `mapstructure:"render"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	Capacity        int           `mapstructure:"capacity"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Prefix          string        `mapstructure:"prefix"`
	RedisAddr       string        `mapstructure:"redis_addr"`
}

type LogoConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxBytes            int64         `mapstructure:"max_bytes"`
}

type RenderConfig struct {
	// Workers is the CPU-bound pool size. Zero means one per CPU.
	Workers       int    `mapstructure:"workers"`
	RecoveryLevel string `mapstructure:"recovery_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3200,
			RequestTimeout:  45 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    512 * 1024,
			CORSOrigins:     []string{"*"},
		},
		Cache: CacheConfig{
			Backend:         cache.BackendMemory,
			TTL:             cache.DefaultTTL,
			Capacity:        cache.DefaultCapacity,
			CleanupInterval: time.Minute,
			Prefix:          "qrgen",
			RedisAddr:       "127.0.0.1:6379",
		},
		Logo: LogoConfig{
			Timeout:             30 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxBytes:            5 << 20,
		},
		Render: RenderConfig{
			Workers:       0,
			RecoveryLevel: "medium",
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("server.request_timeout must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}

	switch c.Cache.Backend {
	case cache.BackendMemory:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Cache.Capacity < 0 {
		return errors.New("cache.capacity must not be negative")
	}

	if c.Logo.Timeout <= 0 {
		return errors.New("logo.timeout must be positive")
	}
	if c.Logo.MaxIdleConnsPerHost > c.Logo.MaxIdleConns {
		return errors.New("logo.max_idle_conns_per_host must not exceed logo.max_idle_conns")
	}
	if c.Logo.MaxBytes <= 0 {
		return errors.New("logo.max_bytes must be positive")
	}

	if c.Render.Workers < 0 {
		return errors.New("render.workers must not be negative")
	}
	if _, err := qr.ParseRecoveryLevel(c.Render.RecoveryLevel); err != nil {
		return fmt.Errorf("render.recovery_level: %w", err)
	}
	return nil
}
