package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"leadcrm_backend/internal/adapters"
	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/identity"
	"leadcrm_backend/internal/leads"
	"leadcrm_backend/internal/notification"
	"leadcrm_backend/internal/scheduler"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/db"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "staleScanCron", cfg.GetStaleScanCron())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	identityModule, err := identity.NewModule(pool, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize identity module", "error", err)
		panic("failed to initialize identity module: " + err.Error())
	}
	directory := adapters.NewIdentityDirectory(identityModule.Service())

	// Worker-side lead wiring: stale scans only, no HTTP handlers.
	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, leads.Deps{Users: directory}, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	notificationModule := notification.New(email.NewSender(cfg), directory, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	periodic, err := scheduler.NewPeriodic(cfg, cfg.GetLocation(), log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, identityModule.Service(), leadsModule, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()

	worker.Run(ctx)
	wg.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
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
