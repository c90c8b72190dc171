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

	"leadcrm_backend/internal/adapters"
	"leadcrm_backend/internal/adapters/storage"
	"leadcrm_backend/internal/auth"
	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/http/router"
	"leadcrm_backend/internal/identity"
	"leadcrm_backend/internal/leads"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/reporting"
	"leadcrm_backend/internal/notification"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/db"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	reportCache, closeCache := initReportCache(ctx, cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	archive := initImportArchive(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule, err := auth.NewModule(pool, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}

	identityModule, err := identity.NewModule(pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize identity module", "error", err)
		panic("failed to initialize identity module: " + err.Error())
	}

	// Anti-Corruption Layer: leads and notification see users only through
	// their own directory ports.
	directory := adapters.NewIdentityDirectory(identityModule.Service())

	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, leads.Deps{
		Users:   directory,
		Archive: archive,
		Cache:   reportCache,
	}, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg), directory, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

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
			identityModule,
			leadsModule,
		},
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
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

// initReportCache returns a Redis-backed cache when REDIS_URL is set and
// REPORT_CACHE_TTL is positive.
func initReportCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (reporting.Cache, func()) {
	if cfg.GetRedisURL() == "" || cfg.GetReportCacheTTL() <= 0 {
		log.Info("report cache disabled")
		return reporting.NoopCache{}, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; report cache disabled", "error", err)
		return reporting.NoopCache{}, nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable; report cache disabled", "error", err)
		_ = client.Close()
		return reporting.NoopCache{}, nil
	}

	log.Info("report cache enabled", "ttl", cfg.GetReportCacheTTL())
	return reporting.NewRedisCache(client, cfg.GetReportCacheTTL()), func() {
		_ = client.Close()
	}
}

// initImportArchive keeps uploaded import files in MinIO when it is configured.
func initImportArchive(ctx context.Context, cfg *config.Config, log *logger.Logger) ports.ImportArchive {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; import files will not be archived")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketLeadImports()
	if err := withRetry(ctx, log, "ensure lead-imports bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "leadImportsBucket", bucket)

	return adapters.NewLeadImportArchive(storageSvc, bucket)
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
