package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursely/api/routes"
	"coursely/internal/notifications"
	"coursely/internal/shared/config"
	"coursely/internal/shared/database"
	"coursely/internal/shared/middleware"
	"coursely/pkg/cache"
	"coursely/pkg/logger"
	"coursely/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB. The engine can run fully in memory for local work.
	var db *database.DB
	if cfg.Database.Enabled {
		var err error
		db, err = database.InitDB(cfg)
		if err != nil {
			appLogger.Error("failed to connect", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	} else {
		appLogger.Info("Database disabled: running with in-memory repositories")
	}

	// Initialize the shared Redis client used for classroom snapshots
	if cfg.Redis.Enabled {
		if err := cache.Init(cache.Config{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}); err != nil {
			appLogger.Error("Failed to initialize Redis cache", slog.Any("error", err))
			appLogger.Info("Continuing without snapshot caching")
		} else {
			defer cache.Close()
		}
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && cache.Client() != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:              cfg.RateLimit.Enabled,
			WindowDuration:       cfg.RateLimit.WindowDuration,
			DefaultRequests:      cfg.RateLimit.DefaultRequests,
			RegistrationRequests: cfg.RateLimit.ApplyRequests,
			AdminRequests:        cfg.RateLimit.AdminRequests,
			HealthRequests:       cfg.RateLimit.HealthRequests,
			WhitelistedIPs:       cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(cache.Client(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Setup router and the registration service behind it
	engine, appRouter, err := setupRouter(cfg, db, rateLimiter, appLogger)
	if err != nil {
		appLogger.Error("Failed to set up routes", slog.Any("error", err))
		os.Exit(1)
	}

	// Rebuild in-memory seat maps and waitlists from storage
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := appRouter.Service().Load(loadCtx); err != nil {
		loadCancel()
		appLogger.Error("Failed to load registration state", slog.Any("error", err))
		os.Exit(1)
	}
	loadCancel()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// Periodic batch allocation, disabled when the interval is zero
	go appRouter.Service().RunPeriodicAllocation(runCtx, cfg.Allocation.BatchInterval)

	// Kafka relay forwards every bus event downstream when brokers are set
	relay, err := notifications.NewRelay(notifications.RelayConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, appRouter.Service().Bus(), appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize Kafka relay", slog.Any("error", err))
		appLogger.Info("Continuing without the event relay")
	} else if relay != nil {
		go relay.Run(runCtx)
		defer relay.Close()
		appLogger.Info("Kafka event relay started", slog.String("topic", cfg.Kafka.Topic))
	}

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s%s/status", cfg.Port, cfg.GetAPIBasePath())),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", cache.Client() != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) (*gin.Engine, *routes.Router, error) {
	engine := gin.New()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(appLogger),
		middleware.Timeout(cfg.RequestTimeout),
		gin.Recovery(),
	)

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, appLogger)
	if err := appRouter.SetupRoutes(engine); err != nil {
		return nil, nil, err
	}

	return engine, appRouter, nil
}
