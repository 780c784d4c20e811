package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *JobRunner
	ctx    context.Context
	logger *slog.Logger
}

// NewScheduler registers the configured jobs. Specs carry a leading seconds
// field and run in UTC.
func NewScheduler(ctx context.Context, jobRunner *JobRunner, cfg config.SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:   c,
		jobs:   jobRunner,
		ctx:    ctx,
		logger: logger,
	}

	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg config.SchedulerConfig) error {
	entries := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{JobSettlement, cfg.SettlementSpec, s.jobs.SettleDueAccounts},
		{JobDefaultScan, cfg.DefaultScanSpec, s.jobs.DetectDefaults},
		{JobReconcile, cfg.ReconcileSpec, s.jobs.ReconcileLedger},
	}

	for _, e := range entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.spec, func() {
			// errors are already logged and counted by the runner
			_ = run(s.ctx)
		}); err != nil {
			return fmt.Errorf("failed to register %s job: %w", e.name, err)
		}
		s.logger.Info("Registered job", "job", e.name, "spec", e.spec)
	}
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	<-s.cron.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
}

// Entries is the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
