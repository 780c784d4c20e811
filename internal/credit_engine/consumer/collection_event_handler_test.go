package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, farmerID uuid.UUID) error {
	args := m.Called(ctx, farmerID)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestCollectionEventHandler_HandleMessage(t *testing.T) {
	farmerID := uuid.New()
	valid, err := json.Marshal(CollectionEvent{
		EventID:      uuid.New(),
		CollectionID: uuid.New(),
		FarmerID:     farmerID,
		Status:       "paid",
		TotalAmount:  12000,
		OccurredAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	noFarmer, err := json.Marshal(CollectionEvent{EventID: uuid.New(), Status: "pending"})
	require.NoError(t, err)

	tests := []struct {
		name          string
		value         []byte
		withDLQ       bool
		setupMocks    func(cache *MockInvalidator, dlq *MockDeadLetterPublisher)
		errorContains string
	}{
		{
			name:  "invalidates the farmer's cached sum",
			value: valid,
			setupMocks: func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {
				cache.On("Invalidate", mock.Anything, farmerID).Return(nil)
			},
		},
		{
			name:  "cache failure is retried by the consumer group",
			value: valid,
			setupMocks: func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {
				cache.On("Invalidate", mock.Anything, farmerID).Return(errors.New("connection refused"))
			},
			errorContains: "invalidating pending payments",
		},
		{
			name:    "malformed message goes to the DLQ",
			value:   []byte("{broken"),
			withDLQ: true,
			setupMocks: func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "collection-1", []byte("{broken"), mock.MatchedBy(func(reason string) bool {
					return len(reason) > 0
				})).Return(nil)
			},
		},
		{
			name:    "event without farmer goes to the DLQ",
			value:   noFarmer,
			withDLQ: true,
			setupMocks: func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "collection-1", noFarmer, mock.Anything).Return(nil)
			},
		},
		{
			name:    "DLQ failure leaves the message uncommitted",
			value:   []byte("{broken"),
			withDLQ: true,
			setupMocks: func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down"))
			},
			errorContains: "unprocessable collection event",
		},
		{
			name:          "no DLQ configured",
			value:         []byte("{broken"),
			setupMocks:    func(cache *MockInvalidator, dlq *MockDeadLetterPublisher) {},
			errorContains: "unprocessable collection event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &MockInvalidator{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(cache, dlq)

			handler := NewCollectionEventHandler(slog.Default(), cache, nil)
			if tt.withDLQ {
				handler = NewCollectionEventHandler(slog.Default(), cache, dlq)
			}

			err := handler.HandleMessage(context.Background(), []byte("collection-1"), tt.value)

			if tt.errorContains != "" {
				assert.ErrorContains(t, err, tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
			cache.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}
