package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/blogpost/blogpost/internal/metrics"
	"github.com/blogpost/blogpost/internal/middleware"
)

// RouterConfig wires the handlers and middleware of the HTTP API.
type RouterConfig struct {
	Logger  *slog.Logger
	Posts   PostService
	Health  *HealthHandler
	Metrics metrics.Snapshotter

	// TrustProxyHeaders lets chi's RealIP rewrite RemoteAddr from proxy
	// headers before logging and rate limiting see it.
	TrustProxyHeaders bool

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	RateLimit   middleware.RateLimitConfig
	MaxBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler("", nil, nil)
	}
	if cfg.RateLimit.Logger == nil {
		cfg.RateLimit.Logger = logger
	}

	h := New()
	posts := NewPostHandler(cfg.Posts, logger)
	metricsHandler := NewMetricsHandler(cfg.Metrics)

	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Hello)

	r.Route("/posts", func(r chi.Router) {
		r.Use(middleware.RateLimitWrites(cfg.RateLimit))
		posts.Routes(r)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
