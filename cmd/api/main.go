// Package main is the entrypoint for the Mety API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/metyhq/mety-api/internal/auth"
	"github.com/metyhq/mety-api/internal/cache"
	"github.com/metyhq/mety-api/internal/cohere"
	"github.com/metyhq/mety-api/internal/config"
	"github.com/metyhq/mety-api/internal/handler"
	"github.com/metyhq/mety-api/internal/metrics"
	"github.com/metyhq/mety-api/internal/middleware"
	"github.com/metyhq/mety-api/internal/repository"
	"github.com/metyhq/mety-api/internal/server"
	"github.com/metyhq/mety-api/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Services
	var recorder metrics.Recorder = metrics.NewNoop()
	var snapshotter metrics.Snapshotter
	if cfg.MetricsEnabled {
		inMemory := metrics.NewInMemory()
		recorder = inMemory
		snapshotter = inMemory
	}
	signer := auth.NewTokenSigner(cfg.JWTSecret, cfg.SessionTokenTTL)
	authService := service.NewAuthService(repo, signer, recorder)
	keyService := service.NewAPIKeyService(repo, repo, cacheClient, recorder)
	llm := cohere.New(cfg.CohereBaseURL, cfg.CohereAPIKey, cfg.CohereModel, recorder)

	// Handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(logger, authService)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, keyService)
	translationHandler := handler.NewTranslationHandler(logger, llm)
	metricsHandler := handler.NewMetricsHandler(snapshotter)

	r := setupRouter(h, healthHandler, authHandler, apiKeyHandler, translationHandler,
		metricsHandler, repo, cacheClient, signer, recorder, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
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

// setupRouter configures the chi router with all routes and middleware.
// Protection is expressed as explicit route groups: public auth routes,
// session-token routes for account and key management, and API-key-guarded
// routes for the data plane. No path-prefix bypass checks.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	apiKeyHandler *handler.APIKeyHandler,
	translationHandler *handler.TranslationHandler,
	metricsHandler *handler.MetricsHandler,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	signer *auth.TokenSigner,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(chimiddleware.RequestSize(cfg.MaxRequestBodySize))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if cfg.MetricsEnabled {
		r.Get("/metrics", metricsHandler.Metrics)
	}

	// Root info endpoint
	r.Get("/", h.Hello)

	guardCfg := middleware.APIKeyAuthConfig{
		Logger:  logger,
		Keys:    repo,
		Cache:   cacheClient,
		Metrics: recorder,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:     logger,
		Cache:      cacheClient,
		APIEnabled: cfg.RateLimitAPIEnabled,
		APIRPM:     cfg.RateLimitAPIRPM,
		APIBurst:   cfg.RateLimitAPIBurst,
		AuthRPS:    cfg.RateLimitAuthRPS,
		AuthBurst:  cfg.RateLimitAuthBurst,
	}

	sessionAuth := middleware.SessionAuth(logger, signer)

	// Account routes (public register/login, session-protected identity)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(sessionAuth).Get("/me", authHandler.Me)
	})

	// Key management routes (session tokens, except Get which authenticates
	// with the raw key itself)
	r.Route("/api/keys", func(r chi.Router) {
		r.With(sessionAuth).Get("/", apiKeyHandler.List)
		r.With(sessionAuth).Post("/", apiKeyHandler.Create)
		r.Get("/{id}", apiKeyHandler.Get)
		r.With(sessionAuth).Patch("/{id}", apiKeyHandler.Update)
		r.With(sessionAuth).Delete("/{id}", apiKeyHandler.Delete)
		r.With(sessionAuth).Post("/{id}/rotate", apiKeyHandler.Rotate)
	})

	// Data-plane routes (API key guard + per-key rate limit + scope)
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(guardCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.With(middleware.RequireTranslate()).Get("/translation", translationHandler.TranslateToFrench)
		r.With(middleware.RequireTranslate()).Post("/translate", translationHandler.Translate)
		r.With(middleware.RequireRead()).Get("/cohere/{message}", translationHandler.Chat)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
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
