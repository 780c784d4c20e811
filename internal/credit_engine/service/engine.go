// Package service implements the farmer credit engine: eligibility, the
// balance-affecting workflows, default detection, recovery tracking and the
// scheduled sweeps. Every mutation runs in one database transaction that
// updates the profile, appends the ledger row and writes the outbox message.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/farm-credit-ledger/internal/platform/clock"
	"github.com/farm-credit-ledger/internal/platform/metrics"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	defaultBatchSize = 500
	maxPerPage       = 100
)

// Dependencies groups everything the engine is built from
type Dependencies struct {
	DB           persistence.TxRunner
	Profiles     ProfileManager
	ProfileRepo  credit.ProfileRepository
	Transactions credit.TransactionRepository
	Defaults     recovery.Repository
	Audit        credit.AuditRepository
	Collections  credit.CollectionsSource
	Farmers      credit.FarmerDirectory
	Notifier     credit.Notifier
	Policy       *credit.Policy
	Calendar     *credit.SettlementCalendar
	Runner       BatchRunner
	Clock        clock.Clock
	BatchSize    int
}

// Engine implements CreditService, RecoveryService and SweepService
type Engine struct {
	db           persistence.TxRunner
	profiles     ProfileManager
	profileRepo  credit.ProfileRepository
	transactions credit.TransactionRepository
	defaults     recovery.Repository
	audit        credit.AuditRepository
	collections  credit.CollectionsSource
	farmers      credit.FarmerDirectory
	notifier     credit.Notifier
	policy       *credit.Policy
	calendar     *credit.SettlementCalendar
	runner       BatchRunner
	clock        clock.Clock
	batchSize    int
	logger       *slog.Logger
}

var (
	_ CreditService   = (*Engine)(nil)
	_ RecoveryService = (*Engine)(nil)
	_ SweepService    = (*Engine)(nil)
)

func NewEngine(deps Dependencies, logger *slog.Logger) *Engine {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}

	return &Engine{
		db:           deps.DB,
		profiles:     deps.Profiles,
		profileRepo:  deps.ProfileRepo,
		transactions: deps.Transactions,
		defaults:     deps.Defaults,
		audit:        deps.Audit,
		collections:  deps.Collections,
		farmers:      deps.Farmers,
		notifier:     deps.Notifier,
		policy:       deps.Policy,
		calendar:     deps.Calendar,
		runner:       deps.Runner,
		clock:        c,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// outcome turns an error into a metrics label
func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	return strings.ToLower(string(credit.KindOf(err)))
}

func (s *Engine) observe(operation string, start time.Time, err error) {
	metrics.ObserveOperation(operation, outcome(err), time.Since(start))
}

// withConflictRetry runs fn and, on an optimistic lock failure, runs it once
// more. fn must re-read everything it depends on.
func (s *Engine) withConflictRetry(ctx context.Context, operation string, farmerID uuid.UUID, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, credit.ErrConcurrentModification{}) {
		return err
	}

	metrics.ConcurrencyRetries.Inc()
	s.logger.WarnContext(ctx, "Concurrent modification, retrying with a fresh read",
		"operation", operation,
		"farmer_id", farmerID.String(),
	)
	return fn()
}

// locker selects how the profile is loaded inside the transaction
type locker func(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, now time.Time) (*credit.Profile, error)

func (s *Engine) lockExisting(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, _ time.Time) (*credit.Profile, error) {
	return s.profiles.Lock(ctx, tx, farmerID)
}

func (s *Engine) lockOrProvision(actorID string) locker {
	return func(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, now time.Time) (*credit.Profile, error) {
		p, _, err := s.profiles.LockOrProvision(ctx, tx, farmerID, actorID, now)
		return p, err
	}
}

// mutate is the single write path for profile workflows: lock, apply,
// save the profile with its ledger row, commit.
func (s *Engine) mutate(
	ctx context.Context,
	operation string,
	farmerID uuid.UUID,
	load locker,
	apply func(p *credit.Profile, now time.Time) (*credit.Transaction, error),
) (*MutationResult, error) {
	start := time.Now()
	var result *MutationResult

	err := s.withConflictRetry(ctx, operation, farmerID, func() error {
		return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			now := s.clock.Now()
			p, err := load(ctx, tx, farmerID, now)
			if err != nil {
				return err
			}

			txn, err := apply(p, now)
			if err != nil {
				return err
			}

			if err := s.profiles.Save(ctx, tx, p, txn); err != nil {
				return err
			}

			result = &MutationResult{Profile: p, Transaction: txn}
			return nil
		})
	})
	s.observe(operation, start, err)

	if err != nil {
		s.logger.InfoContext(ctx, "Credit workflow rejected",
			"operation", operation,
			"farmer_id", farmerID.String(),
			"kind", string(credit.KindOf(err)),
			"error", err,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Credit workflow committed",
		"operation", operation,
		"farmer_id", farmerID.String(),
		"transaction_id", result.Transaction.ID.String(),
		"type", string(result.Transaction.Type),
		"amount", result.Transaction.Amount,
		"balance_after", result.Transaction.BalanceAfter,
	)
	return result, nil
}

func pagination(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return perPage, (page - 1) * perPage
}

func (s *Engine) GetProfile(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	return s.profileRepo.GetByFarmerID(ctx, farmerID)
}

// ListTransactions returns a page of the farmer's ledger, newest first, and
// the total number of entries
func (s *Engine) ListTransactions(ctx context.Context, farmerID uuid.UUID, page, perPage int) ([]*credit.Transaction, int64, error) {
	if _, err := s.profileRepo.GetByFarmerID(ctx, farmerID); err != nil {
		return nil, 0, err
	}

	limit, offset := pagination(page, perPage)
	txns, err := s.transactions.ListByFarmerID(ctx, farmerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountByFarmerID(ctx, farmerID)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// GetAuditTrail reads the audit copy of the ledger for [from, to).
// uuid.Nil covers every farmer.
func (s *Engine) GetAuditTrail(ctx context.Context, farmerID uuid.UUID, from, to time.Time, page, perPage int) ([]*credit.Transaction, int64, error) {
	if !from.Before(to) {
		return nil, 0, credit.ErrValidation{Field: "from", Message: "must be before to"}
	}

	limit, offset := pagination(page, perPage)
	entries, err := s.audit.GetByTimeRange(ctx, farmerID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.audit.CountByTimeRange(ctx, farmerID, from, to)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
