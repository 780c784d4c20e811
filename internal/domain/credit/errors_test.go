package credit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	farmerID := uuid.New()
	testCases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrProfileNotFound{FarmerID: farmerID}, KindNotFound},
		{ErrFarmerNotFound{FarmerID: farmerID}, KindNotFound},
		{ErrAlreadyGranted{FarmerID: farmerID, Balance: 10}, KindAlreadyGranted},
		{ErrNotEligible{FarmerID: farmerID, Reason: "frozen"}, KindNotEligible},
		{ErrValidation{Field: "amount", Message: "negative"}, KindValidation},
		{ErrConcurrentModification{Entity: "credit profile", ID: farmerID}, KindConcurrencyConflict},
		{ErrCollaboratorUnavailable{Collaborator: "collections", Err: errors.New("timeout")}, KindCollaboratorUnavailable},
		{fmt.Errorf("wrapped: %w", ErrValidation{Field: "reason"}), KindValidation},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, KindOf(tc.err), "%v", tc.err)
	}
}

func TestErrProfileNotFound_Is(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrProfileNotFound{FarmerID: uuid.New()})
	assert.True(t, errors.Is(err, ErrProfileNotFound{}))
	assert.False(t, errors.Is(err, ErrProfileNotFound{FarmerID: uuid.New()}))
}

func TestErrCollaboratorUnavailable_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrCollaboratorUnavailable{Collaborator: "farmer directory", Err: cause}
	assert.ErrorIs(t, err, cause)
}
