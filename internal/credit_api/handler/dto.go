package handler

import (
	"time"

	"github.com/farm-credit-ledger/internal/credit_engine/service"
	"github.com/farm-credit-ledger/internal/domain/credit"
)

// AmountRequest carries a draw or repayment in minor units
type AmountRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Notes  string `json:"notes" binding:"max=500"`
}

type AdjustLimitRequest struct {
	NewMaxAmount *int64 `json:"new_max_amount" binding:"required"`
}

type FreezeRequest struct {
	Freeze *bool  `json:"freeze" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

type SuspendRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type RecoveryActionRequest struct {
	ActionType string `json:"action_type" binding:"required"`
	Notes      string `json:"notes" binding:"max=1000"`
}

type ContactRequest struct {
	ContactMethod string `json:"contact_method" binding:"required"`
	Notes         string `json:"notes" binding:"max=1000"`
}

type CompleteActionRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

type ResolveRequest struct {
	ResolutionNotes string `json:"resolution_notes" binding:"max=1000"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// AuditParams bounds an audit query. Times are RFC3339.
type AuditParams struct {
	PaginationParams
	FarmerID string    `form:"farmer_id" binding:"omitempty,uuid"`
	From     time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ProfileResponse represents a credit profile in API responses
type ProfileResponse struct {
	FarmerID              string `json:"farmer_id"`
	CreditTier            string `json:"credit_tier"`
	CreditLimitPercentage string `json:"credit_limit_percentage"`
	MaxCreditAmount       int64  `json:"max_credit_amount"`
	CurrentCreditBalance  int64  `json:"current_credit_balance"`
	SpendableCredit       int64  `json:"spendable_credit"`
	TotalCreditUsed       int64  `json:"total_credit_used"`
	PendingDeductions     int64  `json:"pending_deductions"`
	IsFrozen              bool   `json:"is_frozen"`
	FreezeReason          string `json:"freeze_reason,omitempty"`
	LastSettlementDate    string `json:"last_settlement_date,omitempty"`
	NextSettlementDate    string `json:"next_settlement_date"`
	Version               int    `json:"version"`
	UpdatedAt             string `json:"updated_at"`
}

// TransactionResponse represents a ledger row in API responses
type TransactionResponse struct {
	ID            string `json:"id"`
	FarmerID      string `json:"farmer_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	ActorID       string `json:"actor_id"`
	Notes         string `json:"notes,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// MutationResponse is the committed state after a balance-affecting call
type MutationResponse struct {
	Profile     ProfileResponse      `json:"profile"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

func mapProfileToResponse(p *credit.Profile) ProfileResponse {
	resp := ProfileResponse{
		FarmerID:              p.FarmerID.String(),
		CreditTier:            string(p.CreditTier),
		CreditLimitPercentage: p.CreditLimitPercentage.String(),
		MaxCreditAmount:       p.MaxCreditAmount,
		CurrentCreditBalance:  p.CurrentCreditBalance,
		SpendableCredit:       p.SpendableCredit(),
		TotalCreditUsed:       p.TotalCreditUsed,
		PendingDeductions:     p.PendingDeductions,
		IsFrozen:              p.IsFrozen,
		FreezeReason:          p.FreezeReason,
		NextSettlementDate:    p.NextSettlementDate.Format(time.DateOnly),
		Version:               p.Version,
		UpdatedAt:             p.UpdatedAt.Format(time.RFC3339),
	}
	if p.LastSettlementDate != nil {
		resp.LastSettlementDate = p.LastSettlementDate.Format(time.DateOnly)
	}
	return resp
}

func mapTransactionToResponse(t *credit.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		FarmerID:      t.FarmerID.String(),
		Type:          string(t.Type),
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		ActorID:       t.ActorID,
		Notes:         t.Notes,
		Timestamp:     t.CreatedAt.Format(time.RFC3339),
	}
}

func mapTransactionsToResponse(txns []*credit.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, mapTransactionToResponse(t))
	}
	return out
}

func mapMutationToResponse(res *service.MutationResult) MutationResponse {
	resp := MutationResponse{Profile: mapProfileToResponse(res.Profile)}
	if res.Transaction != nil {
		txn := mapTransactionToResponse(res.Transaction)
		resp.Transaction = &txn
	}
	return resp
}
