// Package consumer reacts to events published by the collections service
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// CollectionEvent is emitted whenever a collection is recorded or changes
// payment status
type CollectionEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	CollectionID uuid.UUID `json:"collection_id"`
	FarmerID     uuid.UUID `json:"farmer_id"`
	Status       string    `json:"status"`
	TotalAmount  int64     `json:"total_amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PendingInvalidator drops a farmer's cached pending payments sum
type PendingInvalidator interface {
	Invalidate(ctx context.Context, farmerID uuid.UUID) error
}

// CollectionEventHandler keeps the pending payments cache fresh. Any change
// to a farmer's collections invalidates the cached sum.
type CollectionEventHandler struct {
	cache    PendingInvalidator
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewCollectionEventHandler(
	logger *slog.Logger,
	cache PendingInvalidator,
	producer producers.DeadLetterPublisher,
) *CollectionEventHandler {
	return &CollectionEventHandler{
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes Kafka messages
func (h *CollectionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event CollectionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal collection event from Kafka message", err)
	}
	if event.FarmerID == uuid.Nil {
		return h.deadLetter(ctx, key, value, "Collection event without farmer", fmt.Errorf("farmer_id is required"))
	}

	logger := h.logger.With("event_id", event.EventID.String(), "farmer_id", event.FarmerID.String())
	logger.Debug("Received collection event", "collection_id", event.CollectionID.String(), "status", event.Status)

	if err := h.cache.Invalidate(ctx, event.FarmerID); err != nil {
		logger.Error("Failed to invalidate pending payments cache", "error", err)
		return fmt.Errorf("invalidating pending payments of farmer %s failed: %w", event.FarmerID, err)
	}
	return nil
}

// deadLetter parks an unprocessable message. The offset is committed only
// when the DLQ write succeeds.
func (h *CollectionEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error(reason, "error", cause, "message_key", string(key))

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			return nil
		}
	}
	return fmt.Errorf("unprocessable collection event: %w", cause)
}
