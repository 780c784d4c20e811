package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultColumns = `id, farmer_id, overdue_amount, days_overdue, status, created_at, updated_at, resolved_at`

// DefaultRepository implements recovery.Repository
type DefaultRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDefaultRepository(logger *slog.Logger, db *persistence.PostgresDB) recovery.Repository {
	return &DefaultRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DefaultRepository) WithTx(tx pgx.Tx) recovery.Repository {
	return &DefaultRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanDefault(row pgx.Row) (*recovery.Default, error) {
	var d recovery.Default
	err := row.Scan(
		&d.ID,
		&d.FarmerID,
		&d.OverdueAmount,
		&d.DaysOverdue,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Upsert relies on the partial unique index over open defaults, so two scans
// racing on the same farmer converge on one row
func (r *DefaultRepository) Upsert(ctx context.Context, d *recovery.Default) (bool, error) {
	query := `
		INSERT INTO credit_defaults (id, farmer_id, overdue_amount, days_overdue, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (farmer_id) WHERE status <> 'resolved'
		DO UPDATE SET
			overdue_amount = EXCLUDED.overdue_amount,
			days_overdue = EXCLUDED.days_overdue,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.querier.QueryRow(ctx, query,
		d.ID,
		d.FarmerID,
		d.OverdueAmount,
		d.DaysOverdue,
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	).Scan(&d.ID, &d.CreatedAt, &inserted)
	if err != nil {
		r.logger.Error("Failed to upsert credit default", "farmer_id", d.FarmerID.String(), "error", err)
		return false, fmt.Errorf("failed to upsert credit default: %w", err)
	}

	return inserted, nil
}

func (r *DefaultRepository) GetByID(ctx context.Context, id uuid.UUID) (*recovery.Default, error) {
	return r.get(ctx, `SELECT `+defaultColumns+` FROM credit_defaults WHERE id = $1`, id)
}

func (r *DefaultRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*recovery.Default, error) {
	return r.get(ctx, `SELECT `+defaultColumns+` FROM credit_defaults WHERE id = $1 FOR UPDATE`, id)
}

func (r *DefaultRepository) get(ctx context.Context, query string, id uuid.UUID) (*recovery.Default, error) {
	d, err := scanDefault(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recovery.ErrDefaultNotFound{DefaultID: id}
		}
		r.logger.Error("Failed to get credit default", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get credit default: %w", err)
	}
	return d, nil
}

func (r *DefaultRepository) UpdateStatus(ctx context.Context, d *recovery.Default) error {
	query := `
		UPDATE credit_defaults
		SET status = $1, resolved_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, d.Status, d.ResolvedAt, d.UpdatedAt, d.ID)
	if err != nil {
		r.logger.Error("Failed to update credit default status", "id", d.ID.String(), "status", string(d.Status), "error", err)
		return fmt.Errorf("failed to update credit default status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return recovery.ErrDefaultNotFound{DefaultID: d.ID}
	}

	return nil
}

// ListActive returns open defaults, most overdue first
func (r *DefaultRepository) ListActive(ctx context.Context, limit, offset int) ([]*recovery.Default, error) {
	query := `
		SELECT ` + defaultColumns + `
		FROM credit_defaults
		WHERE status <> 'resolved'
		ORDER BY days_overdue DESC, farmer_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list active credit defaults", "error", err)
		return nil, fmt.Errorf("failed to list active credit defaults: %w", err)
	}
	defer rows.Close()

	var defaults []*recovery.Default
	for rows.Next() {
		d, err := scanDefault(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit default: %w", err)
		}
		defaults = append(defaults, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credit defaults: %w", err)
	}

	return defaults, nil
}

func (r *DefaultRepository) CreateAction(ctx context.Context, a *recovery.Action) error {
	query := `
		INSERT INTO recovery_actions (id, default_id, action_type, status, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`

	_, err := r.querier.Exec(ctx, query, a.ID, a.DefaultID, a.ActionType, a.Status, a.Notes, a.CreatedBy, a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create recovery action", "default_id", a.DefaultID.String(), "error", err)
		return fmt.Errorf("failed to create recovery action: %w", err)
	}
	return nil
}

func (r *DefaultRepository) ListActions(ctx context.Context, defaultID uuid.UUID) ([]*recovery.Action, error) {
	query := `
		SELECT id, default_id, action_type, status, COALESCE(notes, ''), created_by, created_at
		FROM recovery_actions
		WHERE default_id = $1
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, defaultID)
	if err != nil {
		r.logger.Error("Failed to list recovery actions", "default_id", defaultID.String(), "error", err)
		return nil, fmt.Errorf("failed to list recovery actions: %w", err)
	}
	defer rows.Close()

	var actions []*recovery.Action
	for rows.Next() {
		var a recovery.Action
		if err := rows.Scan(&a.ID, &a.DefaultID, &a.ActionType, &a.Status, &a.Notes, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovery action: %w", err)
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over recovery actions: %w", err)
	}

	return actions, nil
}

func (r *DefaultRepository) CompleteAction(ctx context.Context, defaultID, actionID uuid.UUID, notes string) (*recovery.Action, error) {
	query := `
		UPDATE recovery_actions
		SET status = 'completed', notes = COALESCE(NULLIF($3, ''), notes)
		WHERE id = $1 AND default_id = $2
		RETURNING id, default_id, action_type, status, COALESCE(notes, ''), created_by, created_at
	`

	var a recovery.Action
	err := r.querier.QueryRow(ctx, query, actionID, defaultID, notes).
		Scan(&a.ID, &a.DefaultID, &a.ActionType, &a.Status, &a.Notes, &a.CreatedBy, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, recovery.ErrActionNotFound{DefaultID: defaultID, ActionID: actionID}
	}
	if err != nil {
		r.logger.Error("Failed to complete recovery action", "action_id", actionID.String(), "error", err)
		return nil, fmt.Errorf("failed to complete recovery action: %w", err)
	}
	return &a, nil
}

func (r *DefaultRepository) CreateContact(ctx context.Context, c *recovery.ContactEntry) error {
	query := `
		INSERT INTO contact_history (id, default_id, contact_method, notes, contacted_by, contacted_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, c.ID, c.DefaultID, c.ContactMethod, c.Notes, c.ContactedBy, c.ContactedAt)
	if err != nil {
		r.logger.Error("Failed to create contact history entry", "default_id", c.DefaultID.String(), "error", err)
		return fmt.Errorf("failed to create contact history entry: %w", err)
	}
	return nil
}

func (r *DefaultRepository) ListContacts(ctx context.Context, defaultID uuid.UUID) ([]*recovery.ContactEntry, error) {
	query := `
		SELECT id, default_id, contact_method, COALESCE(notes, ''), contacted_by, contacted_at
		FROM contact_history
		WHERE default_id = $1
		ORDER BY contacted_at
	`

	rows, err := r.querier.Query(ctx, query, defaultID)
	if err != nil {
		r.logger.Error("Failed to list contact history", "default_id", defaultID.String(), "error", err)
		return nil, fmt.Errorf("failed to list contact history: %w", err)
	}
	defer rows.Close()

	var entries []*recovery.ContactEntry
	for rows.Next() {
		var c recovery.ContactEntry
		if err := rows.Scan(&c.ID, &c.DefaultID, &c.ContactMethod, &c.Notes, &c.ContactedBy, &c.ContactedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact history entry: %w", err)
		}
		entries = append(entries, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over contact history: %w", err)
	}

	return entries, nil
}
