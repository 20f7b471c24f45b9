package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := ErrInsufficientBalance.With("balance", "10.00")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NotErrorIs(t, err, ErrMembershipNotActive)

	wrapped := fmt.Errorf("charge: %w", err)
	assert.ErrorIs(t, wrapped, ErrInsufficientBalance)
	assert.Equal(t, KindStateConflict, KindOf(wrapped))
	assert.Equal(t, "insufficient_balance", CodeOf(wrapped))
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	_ = ErrRateLimited.With("retry_after_minutes", 3).Withf("wait 3 minutes")
	assert.Nil(t, ErrRateLimited.Details)
	assert.Equal(t, "rate limited", ErrRateLimited.Message)
}

func TestInternalKeepsCauseButHidesIt(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", err.Message)
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal_error", CodeOf(err))
}
