package logo

import (
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxBytes            = 5 * 1024 * 1024
	defaultMaxPixels           = 64 * 1024 * 1024
)

type Config struct {
	Timeout time.Duration // whole-request timeout (default: 30s)

	// Connection pool settings
	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 10

	MaxBytes  int64 // largest accepted body (default: 5MB)
	MaxPixels int64 // largest accepted width*height (default: 64Mpx)

	// Custom HTTP client (for testing or special configs)
	HTTPClient *http.Client
}

// WithDefaults returns a copy of Config with defaults applied.
func (c Config) WithDefaults() Config {
	cfg := c

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = defaultMaxPixels
	}

	return cfg
}

func (c Config) Validate() error {
	if c.MaxIdleConnsPerHost > c.MaxIdleConns {
		return errors.New("MaxIdleConnsPerHost must not exceed MaxIdleConns")
	}
	return nil
}

// NewFetcher creates a Fetcher with a pooled HTTP client.
func NewFetcher(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: defaultTransport(cfg),
		}
	}

	return &Fetcher{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("logofetcher"),
	}, nil
}

func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Close releases idle pooled connections.
func (f *Fetcher) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}
