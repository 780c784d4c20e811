package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies failures for callers that need to decide between
// retrying, surfacing a business rejection or reporting an internal error
type ErrorKind string

const (
	KindNotFound                ErrorKind = "NOT_FOUND"
	KindAlreadyGranted          ErrorKind = "ALREADY_GRANTED"
	KindNotEligible             ErrorKind = "NOT_ELIGIBLE"
	KindValidation              ErrorKind = "VALIDATION_ERROR"
	KindConcurrencyConflict     ErrorKind = "CONCURRENCY_CONFLICT"
	KindCollaboratorUnavailable ErrorKind = "COLLABORATOR_UNAVAILABLE"
	KindSettlementNotDue        ErrorKind = "SETTLEMENT_NOT_DUE"
	KindInternal                ErrorKind = "INTERNAL_ERROR"
)

type kinded interface {
	Kind() ErrorKind
}

// KindOf walks the error chain and returns the kind of the first typed error found
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// ErrProfileNotFound is returned when no credit profile exists for a farmer
type ErrProfileNotFound struct {
	FarmerID uuid.UUID
}

func (e ErrProfileNotFound) Error() string {
	return fmt.Sprintf("credit profile not found for farmer %s", e.FarmerID)
}

func (e ErrProfileNotFound) Kind() ErrorKind { return KindNotFound }

func (e ErrProfileNotFound) Is(target error) bool {
	t, ok := target.(ErrProfileNotFound)
	if !ok {
		return false
	}
	// Match on any farmer if the target farmer is nil
	return t.FarmerID == uuid.Nil || t.FarmerID == e.FarmerID
}

// ErrFarmerNotFound is returned when the identity directory has no such farmer
type ErrFarmerNotFound struct {
	FarmerID uuid.UUID
}

func (e ErrFarmerNotFound) Error() string {
	return fmt.Sprintf("farmer %s not found", e.FarmerID)
}

func (e ErrFarmerNotFound) Kind() ErrorKind { return KindNotFound }

// ErrAlreadyGranted rejects a grant while a previous grant is still unspent
type ErrAlreadyGranted struct {
	FarmerID uuid.UUID
	Balance  int64
}

func (e ErrAlreadyGranted) Error() string {
	return fmt.Sprintf("credit already granted to farmer %s: current balance %d", e.FarmerID, e.Balance)
}

func (e ErrAlreadyGranted) Kind() ErrorKind { return KindAlreadyGranted }

type ErrNotEligible struct {
	FarmerID uuid.UUID
	Reason   string
}

func (e ErrNotEligible) Error() string {
	return fmt.Sprintf("farmer %s is not eligible for credit: %s", e.FarmerID, e.Reason)
}

func (e ErrNotEligible) Kind() ErrorKind { return KindNotEligible }

type ErrValidation struct {
	Field   string
	Message string
}

func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e ErrValidation) Kind() ErrorKind { return KindValidation }

// ErrConcurrentModification is returned when a version check fails on update
type ErrConcurrentModification struct {
	Entity string
	ID     uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

func (e ErrConcurrentModification) Kind() ErrorKind { return KindConcurrencyConflict }

func (e ErrConcurrentModification) Is(target error) bool {
	_, ok := target.(ErrConcurrentModification)
	return ok
}

// ErrCollaboratorUnavailable wraps failures of external lookups so callers
// can retry instead of treating them as business rejections
type ErrCollaboratorUnavailable struct {
	Collaborator string
	Err          error
}

func (e ErrCollaboratorUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e ErrCollaboratorUnavailable) Unwrap() error { return e.Err }

func (e ErrCollaboratorUnavailable) Kind() ErrorKind { return KindCollaboratorUnavailable }

// ErrSettlementNotDue is returned when settlement runs before the next settlement date
type ErrSettlementNotDue struct {
	FarmerID           uuid.UUID
	NextSettlementDate time.Time
}

func (e ErrSettlementNotDue) Error() string {
	return fmt.Sprintf("settlement for farmer %s is not due until %s", e.FarmerID, e.NextSettlementDate.Format(time.DateOnly))
}

func (e ErrSettlementNotDue) Kind() ErrorKind { return KindSettlementNotDue }
