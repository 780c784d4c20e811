package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository defines the interface for credit profile persistence
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByFarmerID(ctx context.Context, farmerID uuid.UUID) (*Profile, error)
	// LockForUpdate must be called inside a transaction
	LockForUpdate(ctx context.Context, farmerID uuid.UUID) (*Profile, error)
	// Update compares against Version-1 and fails with ErrConcurrentModification
	Update(ctx context.Context, p *Profile) error
	// ListDueForSettlement and ListFarmerIDs page by farmer ID; pass uuid.Nil
	// for the first page and the last ID returned for the next one
	ListDueForSettlement(ctx context.Context, today time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
	ListFarmerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	ListOverdue(ctx context.Context, today time.Time) ([]*Profile, error)
	WithTx(tx pgx.Tx) ProfileRepository
}

// TransactionRepository is the append-only credit ledger
type TransactionRepository interface {
	Append(ctx context.Context, t *Transaction) error
	// ListByFarmerID returns newest first
	ListByFarmerID(ctx context.Context, farmerID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByFarmerID(ctx context.Context, farmerID uuid.UUID) (int64, error)
	// History returns every transaction of the farmer, oldest first
	History(ctx context.Context, farmerID uuid.UUID) ([]*Transaction, error)
	WithTx(tx pgx.Tx) TransactionRepository
}

// AuditRepository is the read-optimised copy of the ledger
type AuditRepository interface {
	Record(ctx context.Context, t *Transaction) error
	GetByTransactionID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time, limit, offset int) ([]*Transaction, error)
	CountByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time) (int64, error)
}

// CollectionsSource reports the value of a farmer's deliveries not yet paid
type CollectionsSource interface {
	SumPendingAmount(ctx context.Context, farmerID uuid.UUID) (int64, error)
}

// FarmerDirectory is the read-only view of farmer identity
type FarmerDirectory interface {
	FarmerTier(ctx context.Context, farmerID uuid.UUID) (Tier, error)
}

// Notifier delivers a message to a farmer. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, farmerID uuid.UUID, message string) error
}
