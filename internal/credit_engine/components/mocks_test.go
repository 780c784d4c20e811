package components

import (
	"context"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Create(ctx context.Context, p *credit.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileRepo) GetByFarmerID(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Profile), args.Error(1)
}

func (m *MockProfileRepo) LockForUpdate(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Profile), args.Error(1)
}

func (m *MockProfileRepo) Update(ctx context.Context, p *credit.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileRepo) ListDueForSettlement(ctx context.Context, today time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, today, after, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProfileRepo) ListFarmerIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, after, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProfileRepo) ListOverdue(ctx context.Context, today time.Time) ([]*credit.Profile, error) {
	args := m.Called(ctx, today)
	return args.Get(0).([]*credit.Profile), args.Error(1)
}

func (m *MockProfileRepo) WithTx(tx pgx.Tx) credit.ProfileRepository {
	args := m.Called(tx)
	return args.Get(0).(credit.ProfileRepository)
}

type MockFarmerDirectory struct {
	mock.Mock
}

func (m *MockFarmerDirectory) FarmerTier(ctx context.Context, farmerID uuid.UUID) (credit.Tier, error) {
	args := m.Called(ctx, farmerID)
	return args.Get(0).(credit.Tier), args.Error(1)
}

type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) Append(ctx context.Context, tx pgx.Tx, txn *credit.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Append(ctx context.Context, t *credit.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepo) ListByFarmerID(ctx context.Context, farmerID uuid.UUID, limit, offset int) ([]*credit.Transaction, error) {
	args := m.Called(ctx, farmerID, limit, offset)
	return args.Get(0).([]*credit.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) CountByFarmerID(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, farmerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) History(ctx context.Context, farmerID uuid.UUID) ([]*credit.Transaction, error) {
	args := m.Called(ctx, farmerID)
	return args.Get(0).([]*credit.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) credit.TransactionRepository {
	args := m.Called(tx)
	return args.Get(0).(credit.TransactionRepository)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}



func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}
