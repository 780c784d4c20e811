package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/batch"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
)

// errCollectionsShort marks a due farmer whose pending collections no longer
// cover the deductions. Such a farmer is left unsettled for default detection.
var errCollectionsShort = errors.New("pending collections do not cover deductions")

// pager returns the next page of farmer IDs after the given one
type pager func(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

// sweep walks every page and runs fn per farmer on the worker pool.
// Per-farmer errors matching skip are counted as skipped, the rest as failed.
func (s *Engine) sweep(ctx context.Context, job string, next pager, fn batch.Func, skip func(error) bool) (*SweepResult, error) {
	start := time.Now()
	result := &SweepResult{}
	after := uuid.Nil

	for {
		ids, err := next(ctx, after, s.batchSize)
		if err != nil {
			s.observe(job, start, err)
			return result, fmt.Errorf("failed to list farmers for %s: %w", job, err)
		}
		if len(ids) == 0 {
			break
		}

		page := s.runner.Run(ctx, ids, fn)
		result.Processed += len(page.Succeeded)
		for farmerID, err := range page.Failed {
			if skip != nil && skip(err) {
				result.Skipped++
				continue
			}
			result.Failed = append(result.Failed, farmerID)
			s.logger.ErrorContext(ctx, "Sweep failed for farmer",
				"job", job,
				"farmer_id", farmerID.String(),
				"error", err,
			)
		}

		if len(ids) < s.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	s.observe(job, start, nil)
	s.logger.InfoContext(ctx, "Sweep finished",
		"job", job,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// RunSettlementSweep settles every farmer due today whose pending collections
// cover the deductions being reconciled
func (s *Engine) RunSettlementSweep(ctx context.Context) (*SweepResult, error) {
	today := credit.DateOf(s.clock.Now())
	listDue := func(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
		return s.profileRepo.ListDueForSettlement(ctx, today, after, limit)
	}

	return s.sweep(ctx, "settlement_sweep", listDue, s.settleIfCovered, func(err error) bool {
		return errors.Is(err, errCollectionsShort) || credit.KindOf(err) == credit.KindSettlementNotDue
	})
}

func (s *Engine) settleIfCovered(ctx context.Context, farmerID uuid.UUID) error {
	pending, err := s.collections.SumPendingAmount(ctx, farmerID)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, "settle", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			if p.PendingDeductions > pending {
				return nil, errCollectionsShort
			}
			return p.Settle(s.calendar, credit.SystemActor, now)
		})
	return err
}

// RunReconciliation replays the ledger of every profile and repairs drift
func (s *Engine) RunReconciliation(ctx context.Context) (*SweepResult, error) {
	var repaired atomic.Int64
	result, err := s.sweep(ctx, "reconciliation", s.profileRepo.ListFarmerIDs,
		func(ctx context.Context, farmerID uuid.UUID) error {
			r, err := s.ReconcileProfile(ctx, farmerID)
			if err != nil {
				return err
			}
			if r.Repaired {
				repaired.Add(1)
			}
			return nil
		}, nil)
	if err != nil {
		return result, err
	}

	if n := repaired.Load(); n > 0 {
		s.logger.WarnContext(ctx, "Reconciliation repaired drifted profiles", "count", n)
	}
	return result, nil
}
