package credit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierTerms are the credit terms applied to new profiles of a tier
type TierTerms struct {
	Percentage      decimal.Decimal
	MaxCreditAmount int64
}

// Policy maps each tier to its terms. It is business configuration and is
// loaded from config rather than compiled in.
type Policy struct {
	terms map[Tier]TierTerms
}

// NewPolicy validates that every known tier has sane terms
func NewPolicy(terms map[Tier]TierTerms) (*Policy, error) {
	hundred := decimal.NewFromInt(100)
	for _, tier := range []Tier{TierNew, TierEstablished, TierPremium} {
		t, ok := terms[tier]
		if !ok {
			return nil, fmt.Errorf("missing credit terms for tier %q", tier)
		}
		if t.Percentage.IsNegative() || t.Percentage.GreaterThan(hundred) {
			return nil, fmt.Errorf("credit percentage for tier %q must be between 0 and 100", tier)
		}
		if t.MaxCreditAmount < 0 {
			return nil, fmt.Errorf("max credit amount for tier %q must not be negative", tier)
		}
	}

	copied := make(map[Tier]TierTerms, len(terms))
	for k, v := range terms {
		copied[k] = v
	}
	return &Policy{terms: copied}, nil
}

// DefaultPolicy returns the stock 30/60/70 percent terms
func DefaultPolicy() *Policy {
	return &Policy{terms: map[Tier]TierTerms{
		TierNew:         {Percentage: decimal.NewFromInt(30), MaxCreditAmount: 50000},
		TierEstablished: {Percentage: decimal.NewFromInt(60), MaxCreditAmount: 100000},
		TierPremium:     {Percentage: decimal.NewFromInt(70), MaxCreditAmount: 200000},
	}}
}

func (p *Policy) Terms(tier Tier) (TierTerms, error) {
	t, ok := p.terms[tier]
	if !ok {
		return TierTerms{}, ErrValidation{Field: "credit_tier", Message: fmt.Sprintf("unknown tier %q", tier)}
	}
	return t, nil
}

// NewProfile builds a fresh profile with the tier defaults applied. The
// first settlement date is one calendar period after creation.
func (p *Policy) NewProfile(farmerID uuid.UUID, tier Tier, calendar *SettlementCalendar, now time.Time) (*Profile, error) {
	terms, err := p.Terms(tier)
	if err != nil {
		return nil, err
	}

	today := DateOf(now)
	next, err := calendar.Next(today, today)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:                    uuid.New(),
		FarmerID:              farmerID,
		CreditTier:            tier,
		CreditLimitPercentage: terms.Percentage,
		MaxCreditAmount:       terms.MaxCreditAmount,
		NextSettlementDate:    next,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// ProvisioningTransaction records the initial cap as an adjustment from zero
// so that the cap can be rebuilt from the ledger alone
func (p *Profile) ProvisioningTransaction(actorID string) *Transaction {
	return p.newTransaction(TransactionTypeAdjusted, p.MaxCreditAmount, 0, actorID, "credit profile provisioned", p.CreatedAt)
}
