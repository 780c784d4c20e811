package recovery

import (
	"fmt"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/google/uuid"
)

// ErrDefaultNotFound is returned when a default record does not exist
type ErrDefaultNotFound struct {
	DefaultID uuid.UUID
}

func (e ErrDefaultNotFound) Error() string {
	return fmt.Sprintf("credit default %s not found", e.DefaultID)
}

func (e ErrDefaultNotFound) Kind() credit.ErrorKind { return credit.KindNotFound }

func (e ErrDefaultNotFound) Is(target error) bool {
	t, ok := target.(ErrDefaultNotFound)
	if !ok {
		return false
	}
	return t.DefaultID == uuid.Nil || t.DefaultID == e.DefaultID
}

// ErrActionNotFound is returned when a recovery action does not exist under the given default
type ErrActionNotFound struct {
	DefaultID uuid.UUID
	ActionID  uuid.UUID
}

func (e ErrActionNotFound) Error() string {
	return fmt.Sprintf("recovery action %s not found on default %s", e.ActionID, e.DefaultID)
}

func (e ErrActionNotFound) Kind() credit.ErrorKind { return credit.KindNotFound }
