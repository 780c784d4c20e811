package recovery

import (
	"strings"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
)

type ContactMethod string

const (
	ContactSMS   ContactMethod = "sms"
	ContactEmail ContactMethod = "email"
	ContactVisit ContactMethod = "visit"
)

func (m ContactMethod) Valid() bool {
	switch m {
	case ContactSMS, ContactEmail, ContactVisit:
		return true
	}
	return false
}

// ResolutionMarker prefixes the notes of the contact entry that closes a default
const ResolutionMarker = "[RESOLVED]"

// ContactEntry records one attempt to reach a defaulted farmer
type ContactEntry struct {
	ID            uuid.UUID     `json:"id"`
	DefaultID     uuid.UUID     `json:"default_id"`
	ContactMethod ContactMethod `json:"contact_method"`
	Notes         string        `json:"notes,omitempty"`
	ContactedBy   string        `json:"contacted_by"`
	ContactedAt   time.Time     `json:"contacted_at"`
}

func NewContactEntry(defaultID uuid.UUID, method ContactMethod, notes, contactedBy string, now time.Time) (*ContactEntry, error) {
	if !method.Valid() {
		return nil, credit.ErrValidation{Field: "contact_method", Message: "unknown contact method " + string(method)}
	}
	if strings.TrimSpace(contactedBy) == "" {
		return nil, credit.ErrValidation{Field: "contacted_by", Message: "actor is required"}
	}

	return &ContactEntry{
		ID:            uuid.New(),
		DefaultID:     defaultID,
		ContactMethod: method,
		Notes:         notes,
		ContactedBy:   contactedBy,
		ContactedAt:   now,
	}, nil
}

// NewResolutionEntry builds the closing contact entry of a resolved default.
// Resolution is announced to the farmer by SMS.
func NewResolutionEntry(defaultID uuid.UUID, notes, resolvedBy string, now time.Time) *ContactEntry {
	return &ContactEntry{
		ID:            uuid.New(),
		DefaultID:     defaultID,
		ContactMethod: ContactSMS,
		Notes:         strings.TrimSpace(ResolutionMarker + " " + notes),
		ContactedBy:   resolvedBy,
		ContactedAt:   now,
	}
}

// IsResolution reports whether the entry closed a default
func (c *ContactEntry) IsResolution() bool {
	return strings.HasPrefix(c.Notes, ResolutionMarker)
}
