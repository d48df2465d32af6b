package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/scheduler"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := storage.NewGatewayFromConfig(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage gateway", "error", err)
		panic("failed to initialize storage gateway: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure image bucket", 5, 2*time.Second, func() error {
		return gateway.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}

	var deleter scheduler.ImageDeleter = gateway
	if cfg.IsPresignCacheEnabled() {
		client, err := storage.NewRedisClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
		if err != nil {
			log.Warn("presigned URL cache unavailable; cached URLs expire on their own", "error", err)
		} else {
			defer func() { _ = client.Close() }()
			deleter = storage.NewCachedStorage(gateway, client, gateway.PresignExpiry(), log)
		}
	}

	worker, err := scheduler.NewWorker(cfg, deleter, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
