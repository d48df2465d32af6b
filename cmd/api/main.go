package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/ads"
	adsservice "classifieds_backend/internal/ads/service"
	"classifieds_backend/internal/auth"
	"classifieds_backend/internal/categories"
	"classifieds_backend/internal/email"
	"classifieds_backend/internal/events"
	apphttp "classifieds_backend/internal/http"
	"classifieds_backend/internal/http/router"
	"classifieds_backend/internal/notification"
	"classifieds_backend/internal/scheduler"
	"classifieds_backend/migrations"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/db"
	"classifieds_backend/platform/logger"
	"classifieds_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying the image bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, gateway *storage.Gateway, bucket string) {
	if err := withRetry(ctx, log, "ensure image bucket", 5, 2*time.Second, func() error {
		return gateway.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.DatabaseError("connect", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, log)
	}); err != nil {
		log.DatabaseError("migrate", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Object storage gateway for ad images
	gateway, err := storage.NewGatewayFromConfig(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage gateway", "error", err)
		panic("failed to initialize storage gateway: " + err.Error())
	}
	ensureBucket(ctx, log, gateway, cfg.GetStorageBucket())
	log.Info(
		"storage gateway initialized",
		"provider", cfg.GetStorageProvider(),
		"bucket", cfg.GetStorageBucket(),
		"presignExpiry", gateway.PresignExpiry().String(),
	)

	imageStorage, closeCache := initPresignCache(ctx, cfg, gateway, log)
	if closeCache != nil {
		defer closeCache()
	}

	cleaner, closeScheduler := initImageCleaner(cfg, imageStorage, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	categoriesModule := categories.NewModule(pool, log)
	if err := withRetry(ctx, log, "seed categories", 3, time.Second, func() error {
		return categoriesModule.Service().Seed(ctx)
	}); err != nil {
		log.DatabaseError("seed_categories", err)
		panic("failed to seed categories: " + err.Error())
	}

	authModule := auth.NewModule(pool, cfg, eventBus, log, val)
	adsModule, err := ads.NewModule(pool, categoriesModule.Service(), imageStorage, cleaner, eventBus, cfg, log, val)
	if err != nil {
		log.Error("failed to initialize ads module", "error", err)
		panic("failed to initialize ads module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			categoriesModule,
			adsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initPresignCache wraps the gateway with the Redis URL cache when enabled.
// A Redis outage at startup degrades to the uncached gateway.
func initPresignCache(ctx context.Context, cfg *config.Config, gateway *storage.Gateway, log *logger.Logger) (storage.ObjectStorage, func()) {
	if !cfg.IsPresignCacheEnabled() {
		log.Info("presigned URL cache disabled")
		return gateway, nil
	}

	client, err := storage.NewRedisClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Warn("presigned URL cache unavailable; continuing without cache", "error", err)
		return gateway, nil
	}

	log.Info("presigned URL cache enabled")
	return storage.NewCachedStorage(gateway, client, gateway.PresignExpiry(), log), func() {
		_ = client.Close()
	}
}

func initImageCleaner(cfg config.SchedulerConfig, store storage.ObjectStorage, log *logger.Logger) (adsservice.ImageCleaner, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; ad images are deleted inline")
		return adsservice.NewInlineImageCleaner(store), nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client; ad images are deleted inline", "error", err)
		return adsservice.NewInlineImageCleaner(store), nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
