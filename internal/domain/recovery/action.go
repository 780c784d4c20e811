package recovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ActionType string

const (
	ActionWithholdCredit ActionType = "withhold_credit"
	ActionSuspendCredit  ActionType = "suspend_credit"
	ActionScheduleVisit  ActionType = "schedule_visit"
	ActionEscalate       ActionType = "escalate"
	ActionCloseAccount   ActionType = "close_account"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionWithholdCredit, ActionSuspendCredit, ActionScheduleVisit, ActionEscalate, ActionCloseAccount:
		return true
	}
	return false
}

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusCompleted ActionStatus = "completed"
)

// Action is an administrative remedial step recorded against a default
type Action struct {
	ID         uuid.UUID    `json:"id"`
	DefaultID  uuid.UUID    `json:"default_id"`
	ActionType ActionType   `json:"action_type"`
	Status     ActionStatus `json:"status"`
	Notes      string       `json:"notes,omitempty"`
	CreatedBy  string       `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewAction creates a pending recovery action
func NewAction(defaultID uuid.UUID, actionType ActionType, notes, createdBy string, now time.Time) (*Action, error) {
	if !actionType.Valid() {
		return nil, credit.ErrValidation{Field: "action_type", Message: "unknown recovery action " + string(actionType)}
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, credit.ErrValidation{Field: "created_by", Message: "actor is required"}
	}

	return &Action{
		ID:         uuid.New(),
		DefaultID:  defaultID,
		ActionType: actionType,
		Status:     ActionStatusPending,
		Notes:      notes,
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}, nil
}

// Notice is the farmer-facing message sent once the action is recorded.
// overdueAmount is in minor units.
func (t ActionType) Notice(overdueAmount int64) string {
	amount := "KES " + decimal.New(overdueAmount, -2).StringFixed(2)
	switch t {
	case ActionWithholdCredit:
		return fmt.Sprintf("Your credit facility has been temporarily withheld due to an overdue payment of %s. Please contact our office to discuss repayment options.", amount)
	case ActionSuspendCredit:
		return fmt.Sprintf("Your credit facility has been suspended due to an overdue payment of %s. Please contact our office immediately to resolve this matter.", amount)
	case ActionScheduleVisit:
		return fmt.Sprintf("A recovery visit has been scheduled to discuss your overdue payment of %s. Our representative will contact you to arrange a meeting.", amount)
	case ActionEscalate:
		return fmt.Sprintf("Your account has been escalated to our collections department due to an overdue payment of %s. You will be contacted shortly.", amount)
	case ActionCloseAccount:
		return fmt.Sprintf("Your account is being considered for closure due to an overdue payment of %s. Immediate action is required to prevent account closure.", amount)
	}
	return ""
}
