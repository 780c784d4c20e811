package credit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the externally assigned credit classification of a farmer
type Tier string

const (
	TierNew         Tier = "new"
	TierEstablished Tier = "established"
	TierPremium     Tier = "premium"
)

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierNew, TierEstablished, TierPremium:
		return true
	}
	return false
}

// Profile is the per-farmer credit record. Its scalar fields are a projection
// of the farmer's transaction ledger and can be rebuilt with Replay.
type Profile struct {
	ID                    uuid.UUID       `json:"id"`
	FarmerID              uuid.UUID       `json:"farmer_id"`
	CreditTier            Tier            `json:"credit_tier"`
	CreditLimitPercentage decimal.Decimal `json:"credit_limit_percentage"`
	MaxCreditAmount       int64           `json:"max_credit_amount"`      // Stored in minor units
	CurrentCreditBalance  int64           `json:"current_credit_balance"` // Spendable, not owed
	TotalCreditUsed       int64           `json:"total_credit_used"`
	PendingDeductions     int64           `json:"pending_deductions"`
	IsFrozen              bool            `json:"is_frozen"`
	FreezeReason          string          `json:"freeze_reason,omitempty"`
	LastSettlementDate    *time.Time      `json:"last_settlement_date,omitempty"`
	NextSettlementDate    time.Time       `json:"next_settlement_date"`
	Version               int             `json:"version"` // For optimistic locking
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DateOf truncates t to midnight UTC of its calendar day
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SpendableCredit is the balance the farmer may still draw. A cap lowered
// mid-cycle limits spending immediately even though the stored balance is
// only brought down at the next settlement.
func (p *Profile) SpendableCredit() int64 {
	if p.IsFrozen {
		return 0
	}
	if p.CurrentCreditBalance > p.MaxCreditAmount {
		return p.MaxCreditAmount
	}
	return p.CurrentCreditBalance
}

// IsDueForSettlement reports whether today is on or after the next settlement date
func (p *Profile) IsDueForSettlement(today time.Time) bool {
	return !DateOf(today).Before(DateOf(p.NextSettlementDate))
}

// DaysOverdue returns whole days elapsed since the missed settlement date, or 0
func (p *Profile) DaysOverdue(today time.Time) int {
	due := DateOf(p.NextSettlementDate)
	t := DateOf(today)
	if !t.After(due) {
		return 0
	}
	return int(t.Sub(due).Hours() / 24)
}

func (p *Profile) touch(now time.Time) {
	p.UpdatedAt = now
	p.Version++
}

func (p *Profile) newTransaction(txType TransactionType, amount int64, before int64, actorID, notes string, now time.Time) *Transaction {
	return &Transaction{
		ID:            uuid.New(),
		FarmerID:      p.FarmerID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  p.CurrentCreditBalance,
		ActorID:       actorID,
		Notes:         notes,
		CreatedAt:     now,
	}
}

// Grant sets the spendable balance to limit. It is rejected for frozen
// profiles and for profiles that still hold an unspent grant.
func (p *Profile) Grant(limit int64, actorID string, now time.Time) (*Transaction, error) {
	if p.IsFrozen {
		return nil, ErrNotEligible{FarmerID: p.FarmerID, Reason: "credit account is frozen: " + p.FreezeReason}
	}
	if p.CurrentCreditBalance > 0 {
		return nil, ErrAlreadyGranted{FarmerID: p.FarmerID, Balance: p.CurrentCreditBalance}
	}
	if limit < 0 {
		return nil, ErrValidation{Field: "credit_limit", Message: "must not be negative"}
	}
	if limit > p.MaxCreditAmount {
		limit = p.MaxCreditAmount
	}

	before := p.CurrentCreditBalance
	p.CurrentCreditBalance = limit
	p.touch(now)
	return p.newTransaction(TransactionTypeGranted, limit, before, actorID, "initial credit grant", now), nil
}

// Use draws amount from the spendable balance and books it as owed
func (p *Profile) Use(amount int64, actorID, notes string, now time.Time) (*Transaction, error) {
	if p.IsFrozen {
		return nil, ErrNotEligible{FarmerID: p.FarmerID, Reason: "credit account is frozen: " + p.FreezeReason}
	}
	if amount <= 0 {
		return nil, ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if amount > p.SpendableCredit() {
		return nil, ErrValidation{Field: "amount", Message: "exceeds available credit"}
	}

	before := p.CurrentCreditBalance
	p.CurrentCreditBalance -= amount
	p.TotalCreditUsed += amount
	p.PendingDeductions += amount
	p.touch(now)
	return p.newTransaction(TransactionTypeUsed, amount, before, actorID, notes, now), nil
}

// Repay reduces the owed deductions ahead of settlement. Spending power is
// only restored by settlement.
func (p *Profile) Repay(amount int64, actorID, notes string, now time.Time) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if amount > p.PendingDeductions {
		return nil, ErrValidation{Field: "amount", Message: "exceeds pending deductions"}
	}

	p.PendingDeductions -= amount
	p.touch(now)
	return p.newTransaction(TransactionTypeRepaid, amount, p.CurrentCreditBalance, actorID, notes, now), nil
}

// AdjustMax changes the absolute cap. The logged amount is the signed
// difference so the cap can be rebuilt by summing adjustments.
func (p *Profile) AdjustMax(newMax int64, actorID string, now time.Time) (*Transaction, error) {
	if newMax < 0 {
		return nil, ErrValidation{Field: "new_max_amount", Message: "must not be negative"}
	}

	difference := newMax - p.MaxCreditAmount
	p.MaxCreditAmount = newMax
	p.touch(now)
	return p.newTransaction(TransactionTypeAdjusted, difference, p.CurrentCreditBalance, actorID, "credit limit adjusted", now), nil
}

// Settle restores the balance to the cap, clears pending deductions and moves
// the settlement calendar forward by one period.
func (p *Profile) Settle(calendar *SettlementCalendar, actorID string, now time.Time) (*Transaction, error) {
	today := DateOf(now)
	if !p.IsDueForSettlement(today) {
		return nil, ErrSettlementNotDue{FarmerID: p.FarmerID, NextSettlementDate: p.NextSettlementDate}
	}

	next, err := calendar.Next(p.NextSettlementDate, today)
	if err != nil {
		return nil, err
	}

	reconciled := p.PendingDeductions
	before := p.CurrentCreditBalance
	p.CurrentCreditBalance = p.MaxCreditAmount
	p.PendingDeductions = 0
	p.LastSettlementDate = &today
	p.NextSettlementDate = next
	p.touch(now)
	return p.newTransaction(TransactionTypeSettlement, reconciled, before, actorID, "monthly settlement", now), nil
}

// SetFrozen freezes or unfreezes the account. Balance and deductions are untouched.
func (p *Profile) SetFrozen(freeze bool, reason, actorID string, now time.Time) (*Transaction, error) {
	if freeze {
		if reason == "" {
			return nil, ErrValidation{Field: "reason", Message: "required when freezing credit"}
		}
		p.IsFrozen = true
		p.FreezeReason = reason
		p.touch(now)
		return p.newTransaction(TransactionTypeFreeze, 0, p.CurrentCreditBalance, actorID, reason, now), nil
	}

	p.IsFrozen = false
	p.FreezeReason = ""
	p.touch(now)
	return p.newTransaction(TransactionTypeUnfreeze, 0, p.CurrentCreditBalance, actorID, "", now), nil
}
