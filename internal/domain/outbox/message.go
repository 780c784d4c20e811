package outbox

import (
	"encoding/json"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message carries a committed credit transaction to the audit store. It is
// written in the same database transaction as the ledger row it copies.
type Message struct {
	ID            int64                  `json:"id"`
	TransactionID uuid.UUID              `json:"transaction_id"`
	FarmerID      uuid.UUID              `json:"farmer_id"`
	EventType     credit.TransactionType `json:"event_type"`
	Payload       json.RawMessage        `json:"payload"`
	Status        Status                 `json:"status"`
	Attempts      int                    `json:"attempts"`
	CreatedAt     time.Time              `json:"created_at"`
	LastAttemptAt *time.Time             `json:"last_attempt_at,omitempty"`
}

func NewMessage(txn *credit.Transaction) (*Message, error) {
	payload, err := json.Marshal(txn)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: txn.ID,
		FarmerID:      txn.FarmerID,
		EventType:     txn.Type,
		Payload:       payload,
		Status:        StatusPending,
		CreatedAt:     txn.CreatedAt,
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Transaction decodes the credit transaction from the payload
func (m *Message) Transaction() (*credit.Transaction, error) {
	var txn credit.Transaction
	if err := json.Unmarshal(m.Payload, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}
