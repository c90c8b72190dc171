package scheduler

import (
	"fmt"
	"time"

	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues recurring tasks on their cron schedules.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic registers the stale scan on STALE_SCAN_CRON, evaluated in loc.
func NewPeriodic(cfg config.SchedulerConfig, loc *time.Location, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})

	task, err := NewStaleScanTask(StaleScanPayload{})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(cfg.GetStaleScanCron(), task, asynq.Queue(queueName(cfg)))
	if err != nil {
		return nil, fmt.Errorf("register stale scan %q: %w", cfg.GetStaleScanCron(), err)
	}
	log.Info("stale scan scheduled", "cron", cfg.GetStaleScanCron(), "entryId", entryID)

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until Shutdown is called.
func (p *Periodic) Run() error {
	return p.scheduler.Run()
}

func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}
