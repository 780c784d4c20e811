package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileManagerImpl implements the ProfileManager interface
type ProfileManagerImpl struct {
	profileRepo credit.ProfileRepository
	farmers     credit.FarmerDirectory
	policy      *credit.Policy
	calendar    *credit.SettlementCalendar
	ledger      service.LedgerWriter
	logger      *slog.Logger
}

func NewProfileManager(
	profileRepo credit.ProfileRepository,
	farmers credit.FarmerDirectory,
	policy *credit.Policy,
	calendar *credit.SettlementCalendar,
	ledger service.LedgerWriter,
	logger *slog.Logger,
) service.ProfileManager {
	return &ProfileManagerImpl{
		profileRepo: profileRepo,
		farmers:     farmers,
		policy:      policy,
		calendar:    calendar,
		ledger:      ledger,
		logger:      logger,
	}
}

// Lock reads the farmer's profile under a row lock held until tx ends
func (m *ProfileManagerImpl) Lock(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID) (*credit.Profile, error) {
	p, err := m.profileRepo.WithTx(tx).LockForUpdate(ctx, farmerID)
	if err != nil {
		if errors.Is(err, credit.ErrProfileNotFound{FarmerID: farmerID}) {
			m.logger.Warn("Credit profile not found for lock", "farmer_id", farmerID.String())
			return nil, err
		}
		m.logger.Error("Failed to lock credit profile", "farmer_id", farmerID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock credit profile of farmer %s: %w", farmerID, err)
	}

	m.logger.Debug("Credit profile locked",
		"farmer_id", farmerID.String(),
		"balance", p.CurrentCreditBalance,
		"version", p.Version,
	)
	return p, nil
}

// LockOrProvision returns the locked profile, creating it first with the
// defaults of the farmer's tier. The new row stays locked by tx. The initial
// cap is logged as an adjustment so replay can rebuild it.
func (m *ProfileManagerImpl) LockOrProvision(ctx context.Context, tx pgx.Tx, farmerID uuid.UUID, actorID string, now time.Time) (*credit.Profile, bool, error) {
	p, err := m.profileRepo.WithTx(tx).LockForUpdate(ctx, farmerID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, credit.ErrProfileNotFound{}) {
		m.logger.Error("Failed to lock credit profile", "farmer_id", farmerID.String(), "error", err)
		return nil, false, fmt.Errorf("failed to lock credit profile of farmer %s: %w", farmerID, err)
	}

	tier, err := m.farmers.FarmerTier(ctx, farmerID)
	if err != nil {
		return nil, false, err
	}

	p, err = m.policy.NewProfile(farmerID, tier, m.calendar, now)
	if err != nil {
		return nil, false, err
	}

	// A concurrent provision surfaces here as ErrConcurrentModification
	if err := m.profileRepo.WithTx(tx).Create(ctx, p); err != nil {
		return nil, false, err
	}
	if err := m.ledger.Append(ctx, tx, p.ProvisioningTransaction(actorID)); err != nil {
		return nil, false, err
	}

	m.logger.Info("Credit profile created",
		"farmer_id", farmerID.String(),
		"tier", string(tier),
		"max_credit_amount", p.MaxCreditAmount,
		"next_settlement_date", p.NextSettlementDate.Format(time.DateOnly),
	)
	return p, true, nil
}

// Save writes the mutated profile and its ledger row. The profile's version
// must already be bumped by the domain method that produced txn.
func (m *ProfileManagerImpl) Save(ctx context.Context, tx pgx.Tx, p *credit.Profile, txn *credit.Transaction) error {
	if err := m.profileRepo.WithTx(tx).Update(ctx, p); err != nil {
		if errors.Is(err, credit.ErrConcurrentModification{}) {
			m.logger.Warn("Concurrent modification on credit profile update", "farmer_id", p.FarmerID.String(), "version", p.Version)
		} else {
			m.logger.Error("Failed to update credit profile", "farmer_id", p.FarmerID.String(), "error", err)
		}
		return err
	}

	return m.ledger.Append(ctx, tx, txn)
}
