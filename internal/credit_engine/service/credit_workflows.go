package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const suspensionPrefix = "Default recovery: "

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return credit.ErrValidation{Field: "actor_id", Message: "actor is required"}
	}
	return nil
}

// CalculateCreditEligibility computes the limit the farmer could be granted
// now. It never writes: a farmer without a profile is evaluated against the
// defaults of the tier reported by the farmer directory.
func (s *Engine) CalculateCreditEligibility(ctx context.Context, farmerID uuid.UUID) (*credit.Eligibility, error) {
	start := time.Now()
	e, err := s.eligibility(ctx, farmerID)
	s.observe("eligibility", start, err)
	return e, err
}

func (s *Engine) eligibility(ctx context.Context, farmerID uuid.UUID) (*credit.Eligibility, error) {
	p, err := s.profileRepo.GetByFarmerID(ctx, farmerID)
	if errors.Is(err, credit.ErrProfileNotFound{}) {
		p, err = s.defaultProfile(ctx, farmerID)
	}
	if err != nil {
		return nil, err
	}

	if p.IsFrozen {
		e := credit.FrozenEligibility(p)
		return &e, nil
	}

	pending, err := s.collections.SumPendingAmount(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	e := credit.CalculateEligibility(p, pending)
	return &e, nil
}

// defaultProfile builds, without saving, the profile the farmer would get
func (s *Engine) defaultProfile(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	tier, err := s.farmers.FarmerTier(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	return s.policy.NewProfile(farmerID, tier, s.calendar, s.clock.Now())
}

// ProvisionProfile returns the farmer's profile, creating it with tier
// defaults first if needed. Calling it again returns the existing profile.
func (s *Engine) ProvisionProfile(ctx context.Context, farmerID uuid.UUID, actorID string) (*credit.Profile, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		profile *credit.Profile
		created bool
	)
	err := s.withConflictRetry(ctx, "provision", farmerID, func() error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			var err error
			profile, created, err = s.profiles.LockOrProvision(ctx, tx, farmerID, actorID, s.clock.Now())
			return err
		})
	})
	s.observe("provision", start, err)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.InfoContext(ctx, "Credit profile provisioned",
			"farmer_id", farmerID.String(),
			"tier", string(profile.CreditTier),
			"max_credit_amount", profile.MaxCreditAmount,
		)
	}
	return profile, nil
}

// GrantCreditToFarmer sets the farmer's balance to the eligible limit. The
// profile is provisioned on first grant. A farmer with no pending payments
// is granted zero rather than rejected.
func (s *Engine) GrantCreditToFarmer(ctx context.Context, farmerID uuid.UUID, actorID string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	// Read outside the transaction to keep the row lock short
	pending, err := s.collections.SumPendingAmount(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	result, err := s.mutate(ctx, "grant", farmerID, s.lockOrProvision(actorID),
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			e := credit.CalculateEligibility(p, pending)
			if !e.IsEligible {
				return nil, credit.ErrNotEligible{FarmerID: farmerID, Reason: "credit account is frozen: " + p.FreezeReason}
			}
			return p.Grant(e.CreditLimit, actorID, now)
		})
	if err != nil {
		return nil, err
	}

	metrics.CreditGranted.Add(float64(result.Transaction.Amount))
	return result, nil
}

// UseCredit draws amount against the farmer's spendable credit
func (s *Engine) UseCredit(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "use", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.Use(amount, actorID, notes, now)
		})
}

// RecordRepayment books a repayment against the pending deductions
func (s *Engine) RecordRepayment(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "repay", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.Repay(amount, actorID, notes, now)
		})
}

// AdjustCreditLimit sets a new absolute cap. The balance is left alone and
// brought under the cap by the next settlement.
func (s *Engine) AdjustCreditLimit(ctx context.Context, farmerID uuid.UUID, newMaxAmount int64, actorID string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "adjust_limit", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.AdjustMax(newMaxAmount, actorID, now)
		})
}

// PerformMonthlySettlement resets the farmer's balance to the cap and moves
// the settlement date forward. It fails with ErrSettlementNotDue before the
// date, which makes a second run on the same day a no-op.
func (s *Engine) PerformMonthlySettlement(ctx context.Context, farmerID uuid.UUID, actorID string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "settle", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.Settle(s.calendar, actorID, now)
		})
}

func (s *Engine) FreezeUnfreezeCredit(ctx context.Context, farmerID uuid.UUID, freeze bool, reason, actorID string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	operation := "unfreeze"
	if freeze {
		operation = "freeze"
	}
	return s.mutate(ctx, operation, farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.SetFrozen(freeze, strings.TrimSpace(reason), actorID, now)
		})
}

// SuspendCredit freezes the account of a defaulting farmer
func (s *Engine) SuspendCredit(ctx context.Context, farmerID uuid.UUID, reason, actorID string) (*MutationResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, credit.ErrValidation{Field: "reason", Message: "required when suspending credit"}
	}

	return s.mutate(ctx, "suspend", farmerID, s.lockExisting,
		func(p *credit.Profile, now time.Time) (*credit.Transaction, error) {
			return p.SetFrozen(true, suspensionPrefix+reason, actorID, now)
		})
}

// ReconcileProfile replays the farmer's ledger and overwrites the stored
// projection if the two disagree. The ledger is the source of truth.
func (s *Engine) ReconcileProfile(ctx context.Context, farmerID uuid.UUID) (*Reconciliation, error) {
	start := time.Now()
	var result *Reconciliation

	err := s.withConflictRetry(ctx, "reconcile", farmerID, func() error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			p, err := s.profiles.Lock(ctx, tx, farmerID)
			if err != nil {
				return err
			}

			history, err := s.transactions.WithTx(tx).History(ctx, farmerID)
			if err != nil {
				return err
			}

			rebuilt, err := credit.Replay(p, history, s.calendar)
			if err != nil {
				return err
			}

			result = &Reconciliation{FarmerID: farmerID, Drift: credit.Drift(p, rebuilt)}
			if len(result.Drift) == 0 {
				return nil
			}

			rebuilt.Version = p.Version + 1
			rebuilt.UpdatedAt = s.clock.Now()
			if err := s.profileRepo.WithTx(tx).Update(ctx, rebuilt); err != nil {
				return err
			}
			result.Repaired = true
			return nil
		})
	})
	s.observe("reconcile", start, err)
	if err != nil {
		return nil, err
	}

	if result.Repaired {
		metrics.LedgerDrift.Inc()
		s.logger.WarnContext(ctx, "Credit profile drifted from its ledger and was rebuilt",
			"farmer_id", farmerID.String(),
			"fields", result.Drift,
		)
	}
	return result, nil
}
