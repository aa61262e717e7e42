// Package main is the entry point for the stockflow background worker.
// It relays outbox events to Redis and cleans up expired records.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/infrastructure/messaging"
	"stockflow/internal/infrastructure/metrics"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     "stockflow-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockflow worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.ApplicationName = "stockflow-worker"
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	redisClient, err := messaging.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = redisClient.Close() }()

	txManager := postgres.NewTxManager(pool)
	m := metrics.New()

	worker := &Worker{
		relay:       postgres.NewOutboxRelay(txManager, cfg.Worker.OutboxBatchSize, messaging.NewStreamPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.MaxLen)),
		idempotency: postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL),
		pool:        pool,
		metrics:     m,
		cfg:         cfg.Worker,
		log:         log.WithComponent("worker"),
	}

	var metricsServer *http.Server
	if cfg.Worker.MetricsPort != "" {
		metricsServer = &http.Server{
			Addr:              ":" + cfg.Worker.MetricsPort,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	log.Info("worker stopped")
}

// Worker runs the outbox relay and periodic cleanup.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	pool        *postgres.Pool
	metrics     *metrics.Metrics
	cfg         config.WorkerConfig
	log         *logger.Logger
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.OutboxPollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// processOutbox drains full batches so a backlog does not wait for the next tick.
func (w *Worker) processOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.metrics.OutboxRelayed("error", 1)
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.metrics.OutboxRelayed("published", n)
		w.log.Debugw("relayed outbox batch", "count", n)
		if n < w.cfg.OutboxBatchSize {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if moved > 0 {
		w.metrics.OutboxRelayed("dead_lettered", int(moved))
		w.log.Warnw("moved failed outbox messages to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.cfg.OutboxRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}

	w.pool.LogStats(ctx)
}
