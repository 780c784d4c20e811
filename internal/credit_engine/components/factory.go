package components

import (
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/farm-credit-ledger/internal/credit_engine/batch"
	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/farm-credit-ledger/internal/platform/clock"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// Repositories are the stores and collaborators the engine is wired to
type Repositories struct {
	Profiles     credit.ProfileRepository
	Transactions credit.TransactionRepository
	Outbox       outbox.Repository
	Defaults     recovery.Repository
	Audit        credit.AuditRepository
	Collections  credit.CollectionsSource
	Farmers      credit.FarmerDirectory
}

// NewPolicy builds the tier policy from configuration
func NewPolicy(cfg config.CreditConfig) (*credit.Policy, error) {
	terms := make(map[credit.Tier]credit.TierTerms, 3)
	for tier, t := range map[credit.Tier]struct {
		pct string
		max int64
	}{
		credit.TierNew:         {cfg.NewPercentage, cfg.NewMaxAmount},
		credit.TierEstablished: {cfg.EstablishedPercentage, cfg.EstablishedMaxAmount},
		credit.TierPremium:     {cfg.PremiumPercentage, cfg.PremiumMaxAmount},
	} {
		pct, err := decimal.NewFromString(t.pct)
		if err != nil {
			return nil, fmt.Errorf("invalid credit percentage for tier %q: %w", tier, err)
		}
		terms[tier] = credit.TierTerms{Percentage: pct, MaxCreditAmount: t.max}
	}
	return credit.NewPolicy(terms)
}

// CreateEngine wires the credit engine with all its dependencies. The
// returned runner owns the worker pool and must be shut down by the caller.
func CreateEngine(
	db persistence.TxRunner,
	repos Repositories,
	notifier credit.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) (*service.Engine, *batch.Runner, error) {
	policy, err := NewPolicy(cfg.Credit)
	if err != nil {
		return nil, nil, err
	}
	calendar, err := credit.NewSettlementCalendar(cfg.Credit.SettlementRule)
	if err != nil {
		return nil, nil, err
	}

	runner, err := batch.NewRunner(batch.Config{Size: cfg.WorkerPool.Size}, logger.With("component", "worker_pool"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	ledgerWriter := NewLedgerWriter(repos.Transactions, repos.Outbox, logger)
	profileManager := NewProfileManager(repos.Profiles, repos.Farmers, policy, calendar, ledgerWriter, logger)

	engine := service.NewEngine(service.Dependencies{
		DB:           db,
		Profiles:     profileManager,
		ProfileRepo:  repos.Profiles,
		Transactions: repos.Transactions,
		Defaults:     repos.Defaults,
		Audit:        repos.Audit,
		Collections:  repos.Collections,
		Farmers:      repos.Farmers,
		Notifier:     notifier,
		Policy:       policy,
		Calendar:     calendar,
		Runner:       runner,
		Clock:        clock.System{},
		BatchSize:    cfg.Scheduler.BatchSize,
	}, logger.With("component", "credit_engine"))

	logger.Info("Created credit engine",
		"pool_size", cfg.WorkerPool.Size,
		"settlement_rule", calendar.Rule(),
	)
	return engine, runner, nil
}
