package outbox_poller

import (
	"context"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

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

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Record(ctx context.Context, t *credit.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockAuditRepo) GetByTransactionID(ctx context.Context, id uuid.UUID) (*credit.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Transaction), args.Error(1)
}

func (m *MockAuditRepo) GetByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time, limit, offset int) ([]*credit.Transaction, error) {
	args := m.Called(ctx, farmerID, from, to, limit, offset)
	return args.Get(0).([]*credit.Transaction), args.Error(1)
}

func (m *MockAuditRepo) CountByTimeRange(ctx context.Context, farmerID uuid.UUID, from, to time.Time) (int64, error) {
	args := m.Called(ctx, farmerID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) PublishToAudit(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}
