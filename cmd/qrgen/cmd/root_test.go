package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
}

func TestRenderWritesWebP(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "qr.webp")

	root := NewRootCommand("test")
	root.SetArgs([]string{"render", "--data", "hello", "--width", "200", "-o", out, "--log-level", "error"})
	require.NoError(t, root.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestRenderRequiresData(t *testing.T) {
	isolate(t)
	root := NewRootCommand("test")
	root.SetArgs([]string{"render"})
	assert.Error(t, root.Execute())
}

func TestRenderRejectsZeroWidth(t *testing.T) {
	isolate(t)
	root := NewRootCommand("test")
	root.SetArgs([]string{"render", "--data", "hello", "--width", "0", "-o", filepath.Join(t.TempDir(), "x.webp")})
	assert.Error(t, root.Execute())
}

func TestServeStopsOnContextCancel(t *testing.T) {
	isolate(t)
	root := NewRootCommand("test")
	root.SetArgs([]string{"serve", "--host", "127.0.0.1", "--port", "0", "--log-level", "error"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestInvalidFlagValueFailsConfig(t *testing.T) {
	isolate(t)
	root := NewRootCommand("test")
	root.SetArgs([]string{"serve", "--cache-backend", "disk"})
	assert.ErrorContains(t, root.Execute(), "cache.backend")
}
