package credit

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Eligibility is the result of an eligibility check. It is never persisted.
type Eligibility struct {
	FarmerID              uuid.UUID       `json:"farmer_id"`
	IsEligible            bool            `json:"is_eligible"`
	CreditLimit           int64           `json:"credit_limit"`
	AvailableCredit       int64           `json:"available_credit"`
	PendingPayments       int64           `json:"pending_payments"`
	CreditTier            Tier            `json:"credit_tier"`
	CreditLimitPercentage decimal.Decimal `json:"credit_limit_percentage"`
	MaxCreditAmount       int64           `json:"max_credit_amount"`
}

// FrozenEligibility is the fixed answer for a frozen profile
func FrozenEligibility(p *Profile) Eligibility {
	return Eligibility{
		FarmerID:              p.FarmerID,
		CreditTier:            p.CreditTier,
		CreditLimitPercentage: p.CreditLimitPercentage,
		MaxCreditAmount:       p.MaxCreditAmount,
	}
}

// CalculateEligibility derives the credit limit from pending payments.
// The limit is floor(pending * percentage / 100) capped at the profile max.
func CalculateEligibility(p *Profile, pendingPayments int64) Eligibility {
	if p.IsFrozen {
		return FrozenEligibility(p)
	}

	raw := decimal.NewFromInt(pendingPayments).
		Mul(p.CreditLimitPercentage).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if raw < 0 {
		raw = 0
	}
	limit := raw
	if limit > p.MaxCreditAmount {
		limit = p.MaxCreditAmount
	}

	return Eligibility{
		FarmerID:              p.FarmerID,
		IsEligible:            true,
		CreditLimit:           limit,
		AvailableCredit:       p.CurrentCreditBalance,
		PendingPayments:       pendingPayments,
		CreditTier:            p.CreditTier,
		CreditLimitPercentage: p.CreditLimitPercentage,
		MaxCreditAmount:       p.MaxCreditAmount,
	}
}
