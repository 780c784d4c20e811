package credit

import (
	"fmt"
	"sort"
	"time"
)

// Replay rebuilds the ledger-derived fields of a profile from its full
// transaction history. Identity, tier, percentage, version and timestamps
// are carried over from current; everything else is recomputed from zero.
func Replay(current *Profile, txns []*Transaction, calendar *SettlementCalendar) (*Profile, error) {
	ordered := make([]*Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	created := DateOf(current.CreatedAt)
	next, err := calendar.Next(created, created)
	if err != nil {
		return nil, err
	}

	rebuilt := &Profile{
		ID:                    current.ID,
		FarmerID:              current.FarmerID,
		CreditTier:            current.CreditTier,
		CreditLimitPercentage: current.CreditLimitPercentage,
		NextSettlementDate:    next,
		Version:               current.Version,
		CreatedAt:             current.CreatedAt,
		UpdatedAt:             current.UpdatedAt,
	}

	for _, t := range ordered {
		if t.FarmerID != current.FarmerID {
			return nil, fmt.Errorf("transaction %s belongs to farmer %s, not %s", t.ID, t.FarmerID, current.FarmerID)
		}

		switch t.Type {
		case TransactionTypeGranted:
			rebuilt.CurrentCreditBalance = t.BalanceAfter
		case TransactionTypeUsed:
			rebuilt.CurrentCreditBalance = t.BalanceAfter
			rebuilt.TotalCreditUsed += t.Amount
			rebuilt.PendingDeductions += t.Amount
		case TransactionTypeRepaid:
			rebuilt.PendingDeductions -= t.Amount
		case TransactionTypeAdjusted:
			rebuilt.MaxCreditAmount += t.Amount
		case TransactionTypeSettlement:
			day := DateOf(t.CreatedAt)
			rebuilt.CurrentCreditBalance = t.BalanceAfter
			rebuilt.PendingDeductions = 0
			rebuilt.LastSettlementDate = &day
			if rebuilt.NextSettlementDate, err = calendar.Next(rebuilt.NextSettlementDate, day); err != nil {
				return nil, err
			}
		case TransactionTypeFreeze:
			rebuilt.IsFrozen = true
			rebuilt.FreezeReason = t.Notes
		case TransactionTypeUnfreeze:
			rebuilt.IsFrozen = false
			rebuilt.FreezeReason = ""
		default:
			return nil, fmt.Errorf("unknown transaction type %q in ledger of farmer %s", t.Type, current.FarmerID)
		}
	}

	return rebuilt, nil
}

// Drift lists the projected fields on which a and b disagree
func Drift(a, b *Profile) []string {
	var fields []string
	if a.MaxCreditAmount != b.MaxCreditAmount {
		fields = append(fields, "max_credit_amount")
	}
	if a.CurrentCreditBalance != b.CurrentCreditBalance {
		fields = append(fields, "current_credit_balance")
	}
	if a.TotalCreditUsed != b.TotalCreditUsed {
		fields = append(fields, "total_credit_used")
	}
	if a.PendingDeductions != b.PendingDeductions {
		fields = append(fields, "pending_deductions")
	}
	if a.IsFrozen != b.IsFrozen || a.FreezeReason != b.FreezeReason {
		fields = append(fields, "freeze_state")
	}
	if !sameDate(a.LastSettlementDate, b.LastSettlementDate) {
		fields = append(fields, "last_settlement_date")
	}
	if !DateOf(a.NextSettlementDate).Equal(DateOf(b.NextSettlementDate)) {
		fields = append(fields, "next_settlement_date")
	}
	return fields
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return DateOf(*a).Equal(DateOf(*b))
}
