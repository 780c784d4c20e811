// Package postgres provides PostgreSQL implementations of the credit ledger
// repositories and of the read-only collaborator lookups.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const profileColumns = `id, farmer_id, credit_tier, credit_limit_percentage::text, max_credit_amount,
		current_credit_balance, total_credit_used, pending_deductions, is_frozen,
		COALESCE(freeze_reason, ''), last_settlement_date, next_settlement_date, version, created_at, updated_at`

// ProfileRepository implements credit.ProfileRepository for PostgreSQL
type ProfileRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewProfileRepository(logger *slog.Logger, db *persistence.PostgresDB) credit.ProfileRepository {
	return &ProfileRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *ProfileRepository) WithTx(tx pgx.Tx) credit.ProfileRepository {
	return &ProfileRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanProfile(row pgx.Row) (*credit.Profile, error) {
	var p credit.Profile
	var percentage string
	err := row.Scan(
		&p.ID,
		&p.FarmerID,
		&p.CreditTier,
		&percentage,
		&p.MaxCreditAmount,
		&p.CurrentCreditBalance,
		&p.TotalCreditUsed,
		&p.PendingDeductions,
		&p.IsFrozen,
		&p.FreezeReason,
		&p.LastSettlementDate,
		&p.NextSettlementDate,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.CreditLimitPercentage, err = decimal.NewFromString(percentage)
	if err != nil {
		return nil, fmt.Errorf("invalid credit limit percentage %q: %w", percentage, err)
	}
	return &p, nil
}

// Create stores a new profile. A second profile for the same farmer violates
// the unique farmer_id constraint.
func (r *ProfileRepository) Create(ctx context.Context, p *credit.Profile) error {
	query := `
		INSERT INTO credit_profiles (id, farmer_id, credit_tier, credit_limit_percentage, max_credit_amount,
			current_credit_balance, total_credit_used, pending_deductions, is_frozen, freeze_reason,
			last_settlement_date, next_settlement_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.FarmerID,
		p.CreditTier,
		p.CreditLimitPercentage.String(),
		p.MaxCreditAmount,
		p.CurrentCreditBalance,
		p.TotalCreditUsed,
		p.PendingDeductions,
		p.IsFrozen,
		p.FreezeReason,
		p.LastSettlementDate,
		p.NextSettlementDate,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// another request provisioned the farmer first
			return credit.ErrConcurrentModification{Entity: "credit profile", ID: p.FarmerID}
		}
		r.logger.Error("Failed to create credit profile", "farmer_id", p.FarmerID.String(), "error", err)
		return fmt.Errorf("failed to create credit profile: %w", err)
	}

	return nil
}

func (r *ProfileRepository) GetByFarmerID(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM credit_profiles WHERE farmer_id = $1`

	p, err := scanProfile(r.querier.QueryRow(ctx, query, farmerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credit.ErrProfileNotFound{FarmerID: farmerID}
		}
		r.logger.Error("Failed to get credit profile", "farmer_id", farmerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get credit profile: %w", err)
	}

	return p, nil
}

// LockForUpdate takes a row lock on the farmer's profile for the rest of the
// surrounding transaction
func (r *ProfileRepository) LockForUpdate(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM credit_profiles WHERE farmer_id = $1 FOR UPDATE`

	p, err := scanProfile(r.querier.QueryRow(ctx, query, farmerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credit.ErrProfileNotFound{FarmerID: farmerID}
		}
		r.logger.Error("Failed to lock credit profile for update", "farmer_id", farmerID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock credit profile for update: %w", err)
	}

	return p, nil
}

// Update writes the projection back, guarded by the previous version
func (r *ProfileRepository) Update(ctx context.Context, p *credit.Profile) error {
	query := `
		UPDATE credit_profiles
		SET max_credit_amount = $1, current_credit_balance = $2, total_credit_used = $3,
			pending_deductions = $4, is_frozen = $5, freeze_reason = NULLIF($6, ''),
			last_settlement_date = $7, next_settlement_date = $8, version = $9, updated_at = $10
		WHERE farmer_id = $11 AND version = $12
	`

	result, err := r.querier.Exec(ctx, query,
		p.MaxCreditAmount,
		p.CurrentCreditBalance,
		p.TotalCreditUsed,
		p.PendingDeductions,
		p.IsFrozen,
		p.FreezeReason,
		p.LastSettlementDate,
		p.NextSettlementDate,
		p.Version,
		p.UpdatedAt,
		p.FarmerID,
		p.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update credit profile", "farmer_id", p.FarmerID.String(), "error", err)
		return fmt.Errorf("failed to update credit profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return credit.ErrConcurrentModification{Entity: "credit profile", ID: p.FarmerID}
	}

	return nil
}

// ListDueForSettlement returns farmers whose settlement date is today or
// earlier. Keyset paging keeps the walk stable while settled rows drop out.
func (r *ProfileRepository) ListDueForSettlement(ctx context.Context, today time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT farmer_id
		FROM credit_profiles
		WHERE next_settlement_date <= $1 AND farmer_id > $2
		ORDER BY farmer_id
		LIMIT $3
	`

	return r.queryFarmerIDs(ctx, "due for settlement", query, credit.DateOf(today), after, limit)
}

// ListFarmerIDs pages through every farmer that has a profile
func (r *ProfileRepository) ListFarmerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT farmer_id
		FROM credit_profiles
		WHERE farmer_id > $1
		ORDER BY farmer_id
		LIMIT $2
	`

	return r.queryFarmerIDs(ctx, "with profiles", query, after, limit)
}

func (r *ProfileRepository) queryFarmerIDs(ctx context.Context, what, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list farmers "+what, "error", err)
		return nil, fmt.Errorf("failed to list farmers %s: %w", what, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan farmer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over farmers %s: %w", what, err)
	}

	return ids, nil
}

// ListOverdue returns profiles with unsettled deductions whose settlement
// date has passed. Farmers whose default was resolved on the scan day are
// left out until the next day's scan.
func (r *ProfileRepository) ListOverdue(ctx context.Context, today time.Time) ([]*credit.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM credit_profiles p
		WHERE p.pending_deductions > 0
			AND p.next_settlement_date < $1
			AND NOT EXISTS (
				SELECT 1 FROM credit_defaults d
				WHERE d.farmer_id = p.farmer_id
					AND d.status = 'resolved'
					AND d.resolved_at >= $1
			)
		ORDER BY p.farmer_id
	`

	rows, err := r.querier.Query(ctx, query, credit.DateOf(today))
	if err != nil {
		r.logger.Error("Failed to list overdue credit profiles", "error", err)
		return nil, fmt.Errorf("failed to list overdue credit profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*credit.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			r.logger.Error("Failed to scan credit profile", "error", err)
			return nil, fmt.Errorf("failed to scan credit profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over overdue profiles: %w", err)
	}

	return profiles, nil
}
