package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qrgen/internal/app"
)

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start an HTTP server exposing:
  POST /api/generate-qrcode            - QR code as WebP
  POST /api/generate-qrcode-with-logo  - QR code with a centered remote logo
  GET  /health                         - liveness probe
  GET  /metrics                        - Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "listen host")
	cmd.Flags().Int("port", 3200, "listen port")
	cmd.Flags().String("cache-backend", "memory", "result cache backend (memory, redis)")
	cmd.Flags().Int("cache-capacity", 1000, "maximum cached images")
	cmd.Flags().String("redis-addr", "127.0.0.1:6379", "redis address for the redis backend")
	cmd.Flags().Int("workers", 0, "render worker pool size (0 = one per CPU)")
	cmd.Flags().String("recovery-level", "medium", "QR error correction (low, medium, high, highest)")

	return cmd
}

func (c *cli) serve(parent context.Context) error {
	cfg := *c.cfg
	logger := c.logger

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("app init failed", zap.Error(err))
		return err
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting qrgen",
		zap.String("addr", ln.Addr().String()),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ----- Graceful shutdown -----
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
