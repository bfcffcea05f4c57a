// Package main is the entrypoint for the blog post API server.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/blogpost/blogpost/internal/cache"
	"github.com/blogpost/blogpost/internal/config"
	"github.com/blogpost/blogpost/internal/events"
	"github.com/blogpost/blogpost/internal/handler"
	"github.com/blogpost/blogpost/internal/metrics"
	"github.com/blogpost/blogpost/internal/middleware"
	"github.com/blogpost/blogpost/internal/repository"
	"github.com/blogpost/blogpost/internal/server"
	"github.com/blogpost/blogpost/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg, os.Stdout)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := repository.Open(ctx, repository.OpenOptions{
		Driver:  cfg.StoreDriver,
		URL:     cfg.DatabaseURL,
		Migrate: cfg.AutoMigrate,
	})
	if err != nil {
		logger.Error(
			"failed to open store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("store ready", "driver", cfg.StoreDriver, "auto_migrate", cfg.AutoMigrate)

	recorder := metrics.NewInMemory()
	opts := service.Options{
		Metrics: recorder,
		Logger:  logger,
		Timeout: cfg.StoreTimeout,
	}

	var (
		cacheClient *cache.Cache
		health      *handler.HealthHandler
		rateLimit   = middleware.RateLimitConfig{
			Logger:  logger,
			Metrics: recorder,
			Enabled: cfg.RateLimitWriteEnabled,
			RPS:     cfg.RateLimitWriteRPS,
			Burst:   cfg.RateLimitWriteBurst,
		}
	)

	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close()
			return err
		}
		logger.Info("connected to Redis", "cache_ttl", cfg.CacheTTL)

		// Assigned only when non-nil so the interfaces never hold a typed nil
		opts.Cache = cacheClient
		opts.Events = events.NewPublisher(cacheClient.Client(), logger, recorder)
		rateLimit.Limiter = cacheClient
		health = handler.NewHealthHandler(cfg.StoreDriver, store, cacheClient)
	} else {
		logger.Warn("REDIS_URL not set; cache, write rate limiting and events disabled")
		health = handler.NewHealthHandler(cfg.StoreDriver, store, nil)
	}

	posts := service.NewPostService(store, opts)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		Posts:       posts,
		Health:      health,
		Metrics:     recorder,
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        corsCfg,
		RateLimit:   rateLimit,
		MaxBodySize: cfg.MaxRequestBodySize,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	srv.OnShutdown("store", func(ctx context.Context) error { return store.Close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			// Let in-flight async event publishes finish
			select {
			case <-time.After(events.PublishTimeout):
			case <-ctx.Done():
			}
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	switch cfg.LogFormat {
	case "pretty":
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
