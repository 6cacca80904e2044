package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"qrgen/internal/handlers"
	"qrgen/internal/metrics"
	"qrgen/internal/middleware"
)

type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, qrHandler *handlers.QRCodeHandler, opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer(handlers.WriteError)) // panic recovery
	r.Use(middleware.Timeout(opts.RequestTimeout))   // request deadline
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	r.Get("/", handlers.Welcome)

	r.Route("/api", func(r chi.Router) {
		r.Get("/generate-qrcode", handlers.Info)
		r.Post("/generate-qrcode", qrHandler.Generate)
		r.Post("/generate-qrcode-with-logo", qrHandler.GenerateWithLogo)
	})

	// health check
	r.Get("/health", handlers.Health)

	r.Handle("/metrics", metrics.Handler())

	r.NotFound(handlers.NotFound)
}

// NewRouter returns a chi router with every route and middleware installed.
func NewRouter(baseLogger *zap.Logger, qrHandler *handlers.QRCodeHandler, opts Options) *chi.Mux {
	r := chi.NewRouter()
	SetupRouter(r, baseLogger, qrHandler, opts)
	return r
}
