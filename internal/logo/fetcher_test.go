package logo

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, cfg Config) *Fetcher {
	t.Helper()
	f, err := NewFetcher(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFetchSuccessIgnoresContentType(t *testing.T) {
	t.Parallel()

	body := pngBytes(t, 8, 4)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{})
	got, err := f.Fetch(context.Background(), srv.URL+"/logo")
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchNonSuccessStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := newTestFetcher(t, Config{})
		_, err := f.Fetch(context.Background(), srv.URL+"/logo")
		srv.Close()

		assert.ErrorIs(t, err, ErrNotFound, "status %d", status)
	}
}

func TestFetchDecodeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("definitely not an image"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestFetchBodyTooLarge(t *testing.T) {
	t.Parallel()

	body := pngBytes(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{MaxBytes: int64(len(body) - 1)})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestFetchTooManyPixels(t *testing.T) {
	t.Parallel()

	body := pngBytes(t, 32, 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{MaxPixels: 100})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestFetchUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := newTestFetcher(t, Config{})
	_, err := f.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFetchBadURL(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, Config{})
	_, err := f.Fetch(context.Background(), "://nope")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFetchTimeoutIsUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchCallerCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	f := newTestFetcher(t, Config{})
	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.MaxIdleConns)
	assert.Equal(t, 10, cfg.MaxIdleConnsPerHost)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxBytes)

	_, err := NewFetcher(Config{MaxIdleConns: 5, MaxIdleConnsPerHost: 50}, nil)
	assert.Error(t, err)
}
