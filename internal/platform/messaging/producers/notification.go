package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Notification is the message handed to the SMS gateway
type Notification struct {
	FarmerID uuid.UUID `json:"farmer_id"`
	Channel  string    `json:"channel"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

// NotificationProducer publishes farmer notifications keyed by farmer so a
// farmer's messages stay ordered within one partition
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}
	if err := ensureTopic(cfg, cfg.NotificationTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure notification topic %s exists: %w", cfg.NotificationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &NotificationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.NotificationTopic,
	}, nil
}

// Notify publishes message for farmerID. Errors are returned for the caller
// to log; delivery is never retried here.
func (p *NotificationProducer) Notify(ctx context.Context, farmerID uuid.UUID, message string) error {
	value, err := json.Marshal(Notification{
		FarmerID: farmerID,
		Channel:  "sms",
		Message:  message,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(farmerID.String()),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published farmer notification", "topic", p.topic, "farmer_id", farmerID)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
