package service

import (
	"context"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/batch"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreditService is the per-farmer surface of the engine
type CreditService interface {
	CalculateCreditEligibility(ctx context.Context, farmerID uuid.UUID) (*credit.Eligibility, error)
	ProvisionProfile(ctx context.Context, farmerID uuid.UUID, actorID string) (*credit.Profile, error)
	GrantCreditToFarmer(ctx context.Context, farmerID uuid.UUID, actorID string) (*MutationResult, error)
	UseCredit(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*MutationResult, error)
	RecordRepayment(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*MutationResult, error)
	AdjustCreditLimit(ctx context.Context, farmerID uuid.UUID, newMaxAmount int64, actorID string) (*MutationResult, error)
	PerformMonthlySettlement(ctx context.Context, farmerID uuid.UUID, actorID string) (*MutationResult, error)
	FreezeUnfreezeCredit(ctx context.Context, farmerID uuid.UUID, freeze bool, reason, actorID string) (*MutationResult, error)
	SuspendCredit(ctx context.Context, farmerID uuid.UUID, reason, actorID string) (*MutationResult, error)
	ReconcileProfile(ctx context.Context, farmerID uuid.UUID) (*Reconciliation, error)
	GetProfile(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error)
	ListTransactions(ctx context.Context, farmerID uuid.UUID, page, perPage int) ([]*credit.Transaction, int64, error)
	GetAuditTrail(ctx context.Context, farmerID uuid.UUID, from, to time.Time, page, perPage int) ([]*credit.Transaction, int64, error)
}

// RecoveryService tracks defaults and the work done to recover them
type RecoveryService interface {
	IdentifyOverdueFarmers(ctx context.Context) (*ScanResult, error)
	CreateRecoveryAction(ctx context.Context, defaultID uuid.UUID, actionType recovery.ActionType, notes, actorID string) (*recovery.Action, error)
	CompleteRecoveryAction(ctx context.Context, defaultID, actionID uuid.UUID, notes, actorID string) (*recovery.Action, error)
	AddContactHistory(ctx context.Context, defaultID uuid.UUID, method recovery.ContactMethod, notes, actorID string) (*recovery.ContactEntry, error)
	ResolveDefault(ctx context.Context, defaultID uuid.UUID, resolutionNotes, actorID string) (*recovery.Default, error)
	GetDefault(ctx context.Context, defaultID uuid.UUID) (*recovery.Default, error)
	ListActiveDefaults(ctx context.Context, page, perPage int) ([]*recovery.Default, error)
}

// SweepService runs the scheduled whole-book jobs
type SweepService interface {
	RunSettlementSweep(ctx context.Context) (*SweepResult, error)
	RunReconciliation(ctx context.Context) (*SweepResult, error)
	IdentifyOverdueFarmers(ctx context.Context) (*ScanResult, error)
}

// ProfileManager owns the locked read-modify-write cycle of a profile.
// Every save is paired with its ledger row in the same transaction.
type ProfileManager interface {
	Lock(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID) (*credit.Profile, error)
	// LockOrProvision creates the profile with tier defaults when it is missing.
	// created reports whether provisioning happened.
	LockOrProvision(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, actorID string, now time.Time) (p *credit.Profile, created bool, err error)
	Save(ctx context.Context, tx pgx.Tx, p *credit.Profile, txn *credit.Transaction) error
}

// LedgerWriter appends a transaction and its outbox message
type LedgerWriter interface {
	Append(ctx context.Context, tx pgx.Tx, txn *credit.Transaction) error
}

// BatchRunner fans per-farmer work out over a worker pool
type BatchRunner interface {
	Run(ctx context.Context, farmerIDs []uuid.UUID, fn batch.Func) *batch.Result
}
