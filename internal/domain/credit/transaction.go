package credit

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeGranted    TransactionType = "granted"
	TransactionTypeUsed       TransactionType = "used"
	TransactionTypeRepaid     TransactionType = "repaid"
	TransactionTypeAdjusted   TransactionType = "adjusted"
	TransactionTypeSettlement TransactionType = "settlement"
	TransactionTypeFreeze     TransactionType = "freeze"
	TransactionTypeUnfreeze   TransactionType = "unfreeze"
)

// Transaction is an immutable entry in a farmer's credit ledger
type Transaction struct {
	ID            uuid.UUID       `json:"id" bson:"transaction_id"`
	FarmerID      uuid.UUID       `json:"farmer_id" bson:"farmer_id"`
	Type          TransactionType `json:"type" bson:"type"`
	Amount        int64           `json:"amount" bson:"amount"` // Signed for adjustments
	BalanceBefore int64           `json:"balance_before" bson:"balance_before"`
	BalanceAfter  int64           `json:"balance_after" bson:"balance_after"`
	ActorID       string          `json:"actor_id" bson:"actor_id"`
	Notes         string          `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt     time.Time       `json:"timestamp" bson:"timestamp"`
}

// SystemActor is recorded on transactions produced by scheduled jobs
const SystemActor = "system"
