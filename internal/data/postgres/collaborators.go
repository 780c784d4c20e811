package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CollectionsSource reads pending produce payments from the collections table
type CollectionsSource struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCollectionsSource(logger *slog.Logger, db *persistence.PostgresDB) *CollectionsSource {
	return &CollectionsSource{querier: db.Pool(), logger: logger}
}

// SumPendingAmount totals deliveries that have not reached a paid state
func (s *CollectionsSource) SumPendingAmount(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_amount), 0)::bigint
		FROM collections
		WHERE farmer_id = $1 AND status NOT IN ('paid', 'settled', 'cancelled')
	`

	var total int64
	if err := s.querier.QueryRow(ctx, query, farmerID).Scan(&total); err != nil {
		s.logger.Error("Failed to sum pending collections", "farmer_id", farmerID.String(), "error", err)
		return 0, credit.ErrCollaboratorUnavailable{Collaborator: "collections", Err: err}
	}
	return total, nil
}

// FarmerDirectory reads farmer identity and tier classification
type FarmerDirectory struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewFarmerDirectory(logger *slog.Logger, db *persistence.PostgresDB) *FarmerDirectory {
	return &FarmerDirectory{querier: db.Pool(), logger: logger}
}

// FarmerTier returns the farmer's tier, defaulting unclassified farmers to new
func (d *FarmerDirectory) FarmerTier(ctx context.Context, farmerID uuid.UUID) (credit.Tier, error) {
	var tier string
	err := d.querier.QueryRow(ctx, `SELECT COALESCE(credit_tier, '') FROM farmers WHERE id = $1`, farmerID).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", credit.ErrFarmerNotFound{FarmerID: farmerID}
		}
		d.logger.Error("Failed to read farmer tier", "farmer_id", farmerID.String(), "error", err)
		return "", credit.ErrCollaboratorUnavailable{Collaborator: "farmer directory", Err: err}
	}

	if tier == "" {
		return credit.TierNew, nil
	}
	t := credit.Tier(tier)
	if !t.Valid() {
		d.logger.Error("Farmer directory returned an unknown tier", "farmer_id", farmerID.String(), "tier", tier)
		return "", credit.ErrCollaboratorUnavailable{
			Collaborator: "farmer directory",
			Err:          fmt.Errorf("farmer %s has unknown credit tier %q", farmerID, tier),
		}
	}
	return t, nil
}
