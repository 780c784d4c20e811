package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMessage(t *testing.T, id int64) (*outbox.Message, *credit.Transaction) {
	t.Helper()
	txn := &credit.Transaction{
		ID:           uuid.New(),
		FarmerID:     uuid.New(),
		Type:         credit.TransactionTypeUsed,
		Amount:       700,
		BalanceAfter: 3800,
		ActorID:      "clerk-2",
		CreatedAt:    time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	msg, err := outbox.NewMessage(txn)
	require.NoError(t, err)
	msg.ID = id
	return msg, txn
}

type entryMissing struct{ id uuid.UUID }

func (e entryMissing) Error() string            { return "no audit entry for " + e.id.String() }
func (e entryMissing) Kind() credit.ErrorKind { return credit.KindNotFound }

func notRecorded(id uuid.UUID) error {
	return entryMissing{id: id}
}

func TestAuditPublisher_PublishToAudit(t *testing.T) {
	msg, txn := newTestMessage(t, 7)

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo)
		errorContains string
	}{
		{
			name:    "recorded and marked processed",
			message: msg,
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("GetByTransactionID", mock.Anything, txn.ID).Return(nil, notRecorded(txn.ID))
				auditRepo.On("Record", mock.Anything, mock.MatchedBy(func(got *credit.Transaction) bool {
					return got.ID == txn.ID && got.Amount == 700 && got.CreatedAt.Equal(txn.CreatedAt)
				})).Return(nil)
				outboxRepo.On("UpdateStatus", mock.Anything, int64(7), outbox.StatusProcessed).Return(nil)
			},
		},
		{
			name: "corrupt payload is parked",
			message: &outbox.Message{
				ID:      8,
				Payload: []byte("{not json"),
			},
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				outboxRepo.On("UpdateStatus", mock.Anything, int64(8), outbox.StatusFailedToPublish).Return(nil)
			},
			errorContains: "unmarshal payload for outbox 8",
		},
		{
			name:    "audit store unavailable",
			message: msg,
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("GetByTransactionID", mock.Anything, txn.ID).Return(nil, notRecorded(txn.ID))
				auditRepo.On("Record", mock.Anything, mock.Anything).Return(errors.New("no reachable servers"))
			},
			errorContains: "failed to record audit entry",
		},
		{
			name:    "status update fails after write",
			message: msg,
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("GetByTransactionID", mock.Anything, txn.ID).Return(nil, notRecorded(txn.ID))
				auditRepo.On("Record", mock.Anything, mock.Anything).Return(nil)
				outboxRepo.On("UpdateStatus", mock.Anything, int64(7), outbox.StatusProcessed).Return(errors.New("db error"))
			},
			errorContains: "failed to mark outbox 7 as PROCESSED",
		},
		{
			name:    "already recorded is only marked processed",
			message: msg,
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("GetByTransactionID", mock.Anything, txn.ID).Return(txn, nil)
				outboxRepo.On("UpdateStatus", mock.Anything, int64(7), outbox.StatusProcessed).Return(nil)
			},
		},
		{
			name:    "lookup fails",
			message: msg,
			setupMocks: func(outboxRepo *MockOutboxRepo, auditRepo *MockAuditRepo) {
				auditRepo.On("GetByTransactionID", mock.Anything, txn.ID).Return(nil, errors.New("server selection timeout"))
			},
			errorContains: "failed to look up audit entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outboxRepo := &MockOutboxRepo{}
			auditRepo := &MockAuditRepo{}
			tt.setupMocks(outboxRepo, auditRepo)

			publisher := NewAuditPublisher(outboxRepo, auditRepo, slog.Default())
			err := publisher.PublishToAudit(context.Background(), tt.message)

			if tt.errorContains != "" {
				assert.ErrorContains(t, err, tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
			outboxRepo.AssertExpectations(t)
			auditRepo.AssertExpectations(t)
		})
	}
}
