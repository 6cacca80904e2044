// Package logo downloads logo images and checks that they decode.
package logo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	// Decoders for content sniffing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"qrgen/internal/metrics"
)

var (
	// ErrUnreachable covers bad URLs, connection failures and the fetch timeout.
	ErrUnreachable = errors.New("logo: remote unreachable")
	// ErrNotFound is returned for any non-2xx response.
	ErrNotFound = errors.New("logo: remote returned non-success status")
	// ErrDecodeFailure is returned when the body is not a supported image.
	ErrDecodeFailure = errors.New("logo: unsupported or corrupt image")
)

// Fetcher retrieves logo bytes over a pooled HTTP client.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Fetch downloads url and returns its body once it sniffs as a supported
// image. The format is guessed from content; Content-Type is ignored.
func (f *Fetcher) Fetch(parentCtx context.Context, url string) ([]byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parentCtx, f.cfg.Timeout)
	defer cancel()

	data, format, err := f.fetch(ctx, url)

	// Caller went away: report that, not a remote failure.
	if err != nil && parentCtx.Err() != nil {
		err = parentCtx.Err()
	}

	outcome := outcomeOf(err)
	metrics.LogoFetchesTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		f.logger.Warn("logo fetch failed",
			zap.String("url", url),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	f.logger.Debug("logo fetched",
		zap.String("url", url),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: build request: %v", ErrUnreachable, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, "", fmt.Errorf("%w: HTTP %d", ErrNotFound, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: body exceeds %d bytes", ErrDecodeFailure, f.cfg.MaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > f.cfg.MaxPixels {
		return nil, "", fmt.Errorf("%w: %s image %dx%d out of bounds", ErrDecodeFailure, format, cfg.Width, cfg.Height)
	}

	return data, format, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	default:
		return "unreachable"
	}
}
