package jobs

import (
	"context"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSweepService struct {
	mock.Mock
}

func (m *MockSweepService) RunSettlementSweep(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepResult), args.Error(1)
}

func (m *MockSweepService) RunReconciliation(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepResult), args.Error(1)
}

func (m *MockSweepService) IdentifyOverdueFarmers(ctx context.Context) (*service.ScanResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScanResult), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, farmerID uuid.UUID, message string) error {
	args := m.Called(ctx, farmerID, message)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Acquire(ctx context.Context, job string) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, job)
	release := func(context.Context) error {
		m.released++
		return nil
	}
	return release, args.Bool(0), args.Error(1)
}
