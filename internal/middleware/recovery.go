package middleware

import (
	"net/http"
	"runtime/debug"

	"qrgen/pkg/logging/logging"

	"go.uber.org/zap"
)

// ErrorWriter writes an error response with the given status.
type ErrorWriter func(w http.ResponseWriter, status int)

// Recoverer turns a handler panic into a 500 written by writeError.
func Recoverer(writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger := logging.L(r.Context())
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
