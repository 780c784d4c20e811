// Package jobs runs the scheduled whole-book work of the credit ledger:
// the monthly settlement sweep, default detection and ledger reconciliation.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/metrics"
)

const (
	JobSettlement  = "settlement_sweep"
	JobDefaultScan = "default_scan"
	JobReconcile   = "reconciliation"
)

// Outcome labels of a job run
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeSkipped = "skipped"
	outcomePanic   = "panic"
)

// Locker keeps a job from running on two scheduler replicas at once
type Locker interface {
	Acquire(ctx context.Context, job string) (release func(context.Context) error, ok bool, err error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	sweeps   service.SweepService
	notifier credit.Notifier
	locker   Locker
	logger   *slog.Logger
}

func NewJobRunner(
	sweeps service.SweepService,
	notifier credit.Notifier,
	locker Locker,
	logger *slog.Logger,
) *JobRunner {
	return &JobRunner{
		sweeps:   sweeps,
		notifier: notifier,
		locker:   locker,
		logger:   logger,
	}
}

// SettleDueAccounts settles every profile whose settlement date has come
func (jr *JobRunner) SettleDueAccounts(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobSettlement, func(ctx context.Context) error {
		res, err := jr.sweeps.RunSettlementSweep(ctx)
		if err != nil {
			return err
		}
		jr.logger.InfoContext(ctx, "Settlement sweep completed",
			"processed", res.Processed,
			"skipped", res.Skipped,
			"failed", len(res.Failed),
		)
		return nil
	})
}

// DetectDefaults records overdue farmers and sends each one a reminder
func (jr *JobRunner) DetectDefaults(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobDefaultScan, func(ctx context.Context) error {
		res, err := jr.sweeps.IdentifyOverdueFarmers(ctx)
		if err != nil {
			return err
		}

		notified := 0
		for _, d := range res.Defaults {
			if err := jr.notifier.Notify(ctx, d.FarmerID, d.Notice()); err != nil {
				metrics.NotificationsSent.WithLabelValues("failed").Inc()
				jr.logger.WarnContext(ctx, "Failed to send overdue reminder",
					"farmer_id", d.FarmerID.String(),
					"error", err,
				)
				continue
			}
			metrics.NotificationsSent.WithLabelValues("success").Inc()
			notified++
		}

		jr.logger.InfoContext(ctx, "Default scan completed",
			"created", res.Created,
			"updated", res.Updated,
			"failed", len(res.Failed),
			"notified", notified,
		)
		return nil
	})
}

// ReconcileLedger rebuilds drifted profiles from their ledger
func (jr *JobRunner) ReconcileLedger(ctx context.Context) error {
	return jr.runWithRecovery(ctx, JobReconcile, func(ctx context.Context) error {
		res, err := jr.sweeps.RunReconciliation(ctx)
		if err != nil {
			return err
		}
		jr.logger.InfoContext(ctx, "Reconciliation completed",
			"checked", res.Processed,
			"failed", len(res.Failed),
		)
		return nil
	})
}

// RunAll runs every job once, in dependency order (for manual execution)
func (jr *JobRunner) RunAll(ctx context.Context) error {
	for _, job := range []func(context.Context) error{jr.SettleDueAccounts, jr.DetectDefaults, jr.ReconcileLedger} {
		if err := job(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runWithRecovery wraps job execution with the cluster lock, metrics and
// panic recovery. A job already running elsewhere is skipped.
func (jr *JobRunner) runWithRecovery(ctx context.Context, job string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	logger := jr.logger.With("job", job)

	release, ok, err := jr.locker.Acquire(ctx, job)
	if err != nil {
		metrics.ObserveJob(job, outcomeError, time.Since(start))
		logger.ErrorContext(ctx, "Failed to acquire job lock", "error", err)
		return fmt.Errorf("failed to acquire lock for %s: %w", job, err)
	}
	if !ok {
		metrics.ObserveJob(job, outcomeSkipped, time.Since(start))
		logger.InfoContext(ctx, "Job already running on another instance, skipping")
		return nil
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			logger.WarnContext(ctx, "Failed to release job lock", "error", relErr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveJob(job, outcomePanic, time.Since(start))
			logger.ErrorContext(ctx, "Job panicked", "panic", r)
			err = fmt.Errorf("job %s panicked: %v", job, r)
		}
	}()

	logger.InfoContext(ctx, "Starting job")
	if err := fn(ctx); err != nil {
		metrics.ObserveJob(job, outcomeError, time.Since(start))
		logger.ErrorContext(ctx, "Job failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("job %s failed: %w", job, err)
	}

	metrics.ObserveJob(job, outcomeSuccess, time.Since(start))
	logger.InfoContext(ctx, "Job completed", "duration", time.Since(start))
	return nil
}
