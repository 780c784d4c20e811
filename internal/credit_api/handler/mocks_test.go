package handler

import (
	"context"
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCreditService struct {
	mock.Mock
}

func (m *MockCreditService) mutation(args mock.Arguments) (*service.MutationResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MutationResult), args.Error(1)
}

func (m *MockCreditService) CalculateCreditEligibility(ctx context.Context, farmerID uuid.UUID) (*credit.Eligibility, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Eligibility), args.Error(1)
}

func (m *MockCreditService) ProvisionProfile(ctx context.Context, farmerID uuid.UUID, actorID string) (*credit.Profile, error) {
	args := m.Called(ctx, farmerID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Profile), args.Error(1)
}

func (m *MockCreditService) GrantCreditToFarmer(ctx context.Context, farmerID uuid.UUID, actorID string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, actorID))
}

func (m *MockCreditService) UseCredit(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, amount, actorID, notes))
}

func (m *MockCreditService) RecordRepayment(ctx context.Context, farmerID uuid.UUID, amount int64, actorID, notes string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, amount, actorID, notes))
}

func (m *MockCreditService) AdjustCreditLimit(ctx context.Context, farmerID uuid.UUID, newMaxAmount int64, actorID string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, newMaxAmount, actorID))
}

func (m *MockCreditService) PerformMonthlySettlement(ctx context.Context, farmerID uuid.UUID, actorID string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, actorID))
}

func (m *MockCreditService) FreezeUnfreezeCredit(ctx context.Context, farmerID uuid.UUID, freeze bool, reason, actorID string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, freeze, reason, actorID))
}

func (m *MockCreditService) SuspendCredit(ctx context.Context, farmerID uuid.UUID, reason, actorID string) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, farmerID, reason, actorID))
}

func (m *MockCreditService) ReconcileProfile(ctx context.Context, farmerID uuid.UUID) (*service.Reconciliation, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reconciliation), args.Error(1)
}

func (m *MockCreditService) GetProfile(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Profile), args.Error(1)
}

func (m *MockCreditService) ListTransactions(ctx context.Context, farmerID uuid.UUID, page, perPage int) ([]*credit.Transaction, int64, error) {
	args := m.Called(ctx, farmerID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*credit.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditService) GetAuditTrail(ctx context.Context, farmerID uuid.UUID, from, to time.Time, page, perPage int) ([]*credit.Transaction, int64, error) {
	args := m.Called(ctx, farmerID, from, to, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*credit.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockRecoveryService struct {
	mock.Mock
}

func (m *MockRecoveryService) IdentifyOverdueFarmers(ctx context.Context) (*service.ScanResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScanResult), args.Error(1)
}

func (m *MockRecoveryService) CreateRecoveryAction(ctx context.Context, defaultID uuid.UUID, actionType recovery.ActionType, notes, actorID string) (*recovery.Action, error) {
	args := m.Called(ctx, defaultID, actionType, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recovery.Action), args.Error(1)
}

func (m *MockRecoveryService) CompleteRecoveryAction(ctx context.Context, defaultID, actionID uuid.UUID, notes, actorID string) (*recovery.Action, error) {
	args := m.Called(ctx, defaultID, actionID, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recovery.Action), args.Error(1)
}

func (m *MockRecoveryService) AddContactHistory(ctx context.Context, defaultID uuid.UUID, method recovery.ContactMethod, notes, actorID string) (*recovery.ContactEntry, error) {
	args := m.Called(ctx, defaultID, method, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recovery.ContactEntry), args.Error(1)
}

func (m *MockRecoveryService) ResolveDefault(ctx context.Context, defaultID uuid.UUID, resolutionNotes, actorID string) (*recovery.Default, error) {
	args := m.Called(ctx, defaultID, resolutionNotes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recovery.Default), args.Error(1)
}

func (m *MockRecoveryService) GetDefault(ctx context.Context, defaultID uuid.UUID) (*recovery.Default, error) {
	args := m.Called(ctx, defaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recovery.Default), args.Error(1)
}

func (m *MockRecoveryService) ListActiveDefaults(ctx context.Context, page, perPage int) ([]*recovery.Default, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recovery.Default), args.Error(1)
}
