package service

import (
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/google/uuid"
)

// MutationResult is the committed state after a balance-affecting workflow
type MutationResult struct {
	Profile     *credit.Profile     `json:"profile"`
	Transaction *credit.Transaction `json:"transaction"`
}

// Reconciliation reports how a profile compared to its ledger replay
type Reconciliation struct {
	FarmerID uuid.UUID `json:"farmer_id"`
	Drift    []string  `json:"drift,omitempty"`
	Repaired bool      `json:"repaired"`
}

// ScanResult lists the defaults written by one detection run
type ScanResult struct {
	Defaults []*recovery.Default `json:"defaults"`
	Created  int                 `json:"created"`
	Updated  int                 `json:"updated"`
	Failed   []uuid.UUID         `json:"failed,omitempty"`
}

// FarmerIDs returns the farmers touched by the scan
func (r *ScanResult) FarmerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Defaults))
	for _, d := range r.Defaults {
		ids = append(ids, d.FarmerID)
	}
	return ids
}

// SweepResult summarises a batch job over many farmers
type SweepResult struct {
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
}
