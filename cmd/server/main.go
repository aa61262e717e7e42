// Package main is the entry point for the stockflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"stockflow/internal/config"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/infrastructure/metrics"
	"stockflow/internal/infrastructure/numerator"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     "stockflow",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting stockflow server", "version", version, "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Infrastructure services ---
	m := metrics.New()
	events := metrics.NewCountingPublisher(postgres.NewOutboxPublisher(txManager), m)

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	var idempotency middleware.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idempotency = postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatalw("failed to register validations", "error", err)
	}

	// --- Router ---
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterConfig{
		Database:          pool,
		TxManager:         txManager,
		Logger:            log,
		Metrics:           m,
		Numerator:         numerator.NewWithTxManager(txManager),
		Events:            events,
		Audit:             audit,
		Idempotency:       idempotency,
		RateLimiter:       rateLimiter,
		CORSAllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		Version:           version,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	pool.LogStats(shutdownCtx)
	log.Info("server stopped")
}
