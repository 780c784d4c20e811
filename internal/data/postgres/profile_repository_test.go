package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var profileColumnNames = []string{
	"id", "farmer_id", "credit_tier", "credit_limit_percentage", "max_credit_amount",
	"current_credit_balance", "total_credit_used", "pending_deductions", "is_frozen",
	"freeze_reason", "last_settlement_date", "next_settlement_date", "version", "created_at", "updated_at",
}

func newStoredProfile() *credit.Profile {
	created := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	return &credit.Profile{
		ID:                    uuid.New(),
		FarmerID:              uuid.New(),
		CreditTier:            credit.TierEstablished,
		CreditLimitPercentage: decimal.RequireFromString("60"),
		MaxCreditAmount:       100000,
		CurrentCreditBalance:  40000,
		TotalCreditUsed:       15000,
		PendingDeductions:     15000,
		NextSettlementDate:    time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		Version:               3,
		CreatedAt:             created,
		UpdatedAt:             created.Add(time.Hour),
	}
}

func profileRows(profiles ...*credit.Profile) *pgxmock.Rows {
	rows := pgxmock.NewRows(profileColumnNames)
	for _, p := range profiles {
		rows.AddRow(
			p.ID, p.FarmerID, p.CreditTier, p.CreditLimitPercentage.String(), p.MaxCreditAmount,
			p.CurrentCreditBalance, p.TotalCreditUsed, p.PendingDeductions, p.IsFrozen,
			p.FreezeReason, p.LastSettlementDate, p.NextSettlementDate, p.Version, p.CreatedAt, p.UpdatedAt,
		)
	}
	return rows
}

func assertSameProfile(t *testing.T, want, got *credit.Profile) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, want.CreditLimitPercentage.Equal(got.CreditLimitPercentage))
	w, g := *want, *got
	w.CreditLimitPercentage, g.CreditLimitPercentage = decimal.Zero, decimal.Zero
	assert.Equal(t, w, g)
}

func TestProfileRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	p := newStoredProfile()
	query := regexp.QuoteMeta("INSERT INTO credit_profiles")
	args := []interface{}{
		p.ID, p.FarmerID, p.CreditTier, "60", p.MaxCreditAmount,
		p.CurrentCreditBalance, p.TotalCreditUsed, p.PendingDeductions, p.IsFrozen, p.FreezeReason,
		p.LastSettlementDate, p.NextSettlementDate, p.Version, p.CreatedAt, p.UpdatedAt,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate farmer", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, p)
		assert.ErrorIs(t, err, credit.ErrConcurrentModification{})
		assert.Equal(t, credit.KindConcurrencyConflict, credit.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(dbErr)

		err := repo.Create(ctx, p)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create credit profile")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProfileRepository_GetByFarmerID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	p := newStoredProfile()
	settled := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p.LastSettlementDate = &settled
	p.IsFrozen = true
	p.FreezeReason = "missed settlement"
	query := regexp.QuoteMeta("SELECT id, farmer_id, credit_tier")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(p.FarmerID).WillReturnRows(profileRows(p))

		got, err := repo.GetByFarmerID(ctx, p.FarmerID)
		require.NoError(t, err)
		assertSameProfile(t, p, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(p.FarmerID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByFarmerID(ctx, p.FarmerID)
		assert.Nil(t, got)
		var notFound credit.ErrProfileNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, p.FarmerID, notFound.FarmerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt percentage", func(t *testing.T) {
		rows := pgxmock.NewRows(profileColumnNames).AddRow(
			p.ID, p.FarmerID, p.CreditTier, "sixty", p.MaxCreditAmount,
			p.CurrentCreditBalance, p.TotalCreditUsed, p.PendingDeductions, p.IsFrozen,
			p.FreezeReason, p.LastSettlementDate, p.NextSettlementDate, p.Version, p.CreatedAt, p.UpdatedAt,
		)
		mock.ExpectQuery(query).WithArgs(p.FarmerID).WillReturnRows(rows)

		_, err := repo.GetByFarmerID(ctx, p.FarmerID)
		assert.ErrorContains(t, err, "invalid credit limit percentage")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProfileRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	p := newStoredProfile()
	query := `FOR UPDATE`

	mock.ExpectQuery(query).WithArgs(p.FarmerID).WillReturnRows(profileRows(p))
	got, err := repo.LockForUpdate(ctx, p.FarmerID)
	require.NoError(t, err)
	assertSameProfile(t, p, got)

	mock.ExpectQuery(query).WithArgs(p.FarmerID).WillReturnError(pgx.ErrNoRows)
	_, err = repo.LockForUpdate(ctx, p.FarmerID)
	assert.Equal(t, credit.KindNotFound, credit.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	p := newStoredProfile()
	query := regexp.QuoteMeta("UPDATE credit_profiles")
	args := []interface{}{
		p.MaxCreditAmount, p.CurrentCreditBalance, p.TotalCreditUsed, p.PendingDeductions,
		p.IsFrozen, p.FreezeReason, p.LastSettlementDate, p.NextSettlementDate,
		p.Version, p.UpdatedAt, p.FarmerID, p.Version - 1,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, p)
		var conflict credit.ErrConcurrentModification
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, p.FarmerID, conflict.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProfileRepository_ListDueForSettlement(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	first, second := uuid.New(), uuid.New()
	today := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE next_settlement_date <= $1 AND farmer_id > $2")).
		WithArgs(today, uuid.Nil, 100).
		WillReturnRows(pgxmock.NewRows([]string{"farmer_id"}).AddRow(first).AddRow(second))

	ids, err := repo.ListDueForSettlement(ctx, today.Add(15*time.Hour), uuid.Nil, 100)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_ListFarmerIDs(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	dbErr := errors.New("connection reset")
	after := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE farmer_id > $1")).WithArgs(after, 50).WillReturnError(dbErr)

	ids, err := repo.ListFarmerIDs(ctx, after, 50)
	assert.Nil(t, ids)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	p := newStoredProfile()
	today := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	// Only a default resolved on the scan day holds the farmer back
	mock.ExpectQuery(`(?s)WHERE p\.pending_deductions > 0.*d\.resolved_at >= \$1`).
		WithArgs(today).
		WillReturnRows(profileRows(p))

	profiles, err := repo.ListOverdue(ctx, today)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assertSameProfile(t, p, profiles[0])
	assert.Equal(t, 10, profiles[0].DaysOverdue(today))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_WithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	repo := &ProfileRepository{querier: mock, logger: newTestLogger()}
	txRepo, ok := repo.WithTx(tx).(*ProfileRepository)
	require.True(t, ok)
	assert.Equal(t, tx, txRepo.querier)
}
