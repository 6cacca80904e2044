package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"qrgen/pkg/logging/logging"

	"go.uber.org/zap"
)

// Timeout puts a deadline of d on the request context. The handler still
// owns the response: it sees the deadline through ctx and answers 504 itself,
// so nothing writes to w concurrently.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logging.L(ctx).Warn("request timeout", zap.Duration("timeout", d))
			}
		})
	}
}
