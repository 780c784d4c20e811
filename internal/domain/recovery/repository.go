package recovery

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists defaults together with their actions and contact history
type Repository interface {
	// Upsert inserts d or, if the farmer already has a non-resolved default,
	// overwrites its amount, days and status in place. d.ID and d.CreatedAt
	// are replaced with the stored values.
	Upsert(ctx context.Context, d *Default) (inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Default, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Default, error)
	UpdateStatus(ctx context.Context, d *Default) error
	ListActive(ctx context.Context, limit, offset int) ([]*Default, error)
	CreateAction(ctx context.Context, a *Action) error
	ListActions(ctx context.Context, defaultID uuid.UUID) ([]*Action, error)
	// CompleteAction marks the action completed. Empty notes keep the stored
	// notes. Completing a completed action rewrites nothing but the notes.
	CompleteAction(ctx context.Context, defaultID, actionID uuid.UUID, notes string) (*Action, error)
	CreateContact(ctx context.Context, c *ContactEntry) error
	ListContacts(ctx context.Context, defaultID uuid.UUID) ([]*ContactEntry, error)
	WithTx(tx pgx.Tx) Repository
}
