package scheduler

import (
	"context"
	"errors"
	"fmt"

	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CompanyLister lists the tenants a scan covers.
type CompanyLister interface {
	ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StaleScanner runs stale detection for one company and publishes the result.
type StaleScanner interface {
	ScanStale(ctx context.Context, companyID uuid.UUID) (int, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	companies CompanyLister
	scanner   StaleScanner
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, companies CompanyLister, scanner StaleScanner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(companies, scanner, log)
	w.server = server
	return w, nil
}

func newWorker(companies CompanyLister, scanner StaleScanner, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:       mux,
		companies: companies,
		scanner:   scanner,
		log:       log,
	}
	mux.HandleFunc(TaskStaleScan, w.handleStaleScan)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleStaleScan scans one company, or every company when the payload
// names none. A failing company does not stop the others.
func (w *Worker) handleStaleScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStaleScanPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	var companyIDs []uuid.UUID
	if payload.CompanyID != "" {
		id, err := uuid.Parse(payload.CompanyID)
		if err != nil {
			return fmt.Errorf("invalid company id: %w", asynq.SkipRetry)
		}
		companyIDs = []uuid.UUID{id}
	} else {
		companyIDs, err = w.companies.ListCompanyIDs(ctx)
		if err != nil {
			return err
		}
	}

	var errs []error
	total := 0
	for _, companyID := range companyIDs {
		found, err := w.scanner.ScanStale(ctx, companyID)
		if err != nil {
			w.log.Error("stale scan failed", "companyId", companyID, "error", err)
			errs = append(errs, fmt.Errorf("company %s: %w", companyID, err))
			continue
		}
		total += found
	}

	w.log.Info("stale scan finished", "companies", len(companyIDs), "staleLeads", total)
	return errors.Join(errs...)
}
