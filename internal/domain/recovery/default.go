package recovery

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOverdue         Status = "overdue"
	StatusPastDue         Status = "past_due"
	StatusSeverelyOverdue Status = "severely_overdue"
	StatusResolved        Status = "resolved"
)

// Severity thresholds in days overdue
const (
	overdueMaxDays = 15
	pastDueMaxDays = 30
)

// Classify maps days overdue to a default status
func Classify(daysOverdue int) Status {
	switch {
	case daysOverdue <= overdueMaxDays:
		return StatusOverdue
	case daysOverdue <= pastDueMaxDays:
		return StatusPastDue
	default:
		return StatusSeverelyOverdue
	}
}

// Default tracks a farmer whose deductions went unsettled past the due date.
// At most one non-resolved default exists per farmer.
type Default struct {
	ID              uuid.UUID       `json:"id"`
	FarmerID        uuid.UUID       `json:"farmer_id"`
	OverdueAmount   int64           `json:"overdue_amount"`
	DaysOverdue     int             `json:"days_overdue"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	RecoveryActions []*Action       `json:"recovery_actions,omitempty"`
	ContactHistory  []*ContactEntry `json:"contact_history,omitempty"`
}

// NewDefault builds a default record from the current overdue state
func NewDefault(farmerID uuid.UUID, overdueAmount int64, daysOverdue int, now time.Time) *Default {
	return &Default{
		ID:            uuid.New(),
		FarmerID:      farmerID,
		OverdueAmount: overdueAmount,
		DaysOverdue:   daysOverdue,
		Status:        Classify(daysOverdue),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d *Default) IsResolved() bool {
	return d.Status == StatusResolved
}

// Resolve closes the default. Resolving twice keeps the first resolution time.
func (d *Default) Resolve(now time.Time) {
	if d.IsResolved() {
		return
	}
	d.Status = StatusResolved
	d.ResolvedAt = &now
	d.UpdatedAt = now
}

// Notice is the reminder sent to the farmer while the default is open
func (d *Default) Notice() string {
	return fmt.Sprintf("Your credit account has an overdue amount of KES %s for %d days. Please contact our office immediately to resolve this matter and avoid further action.",
		decimal.New(d.OverdueAmount, -2).StringFixed(2), d.DaysOverdue)
}
