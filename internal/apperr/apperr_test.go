package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrParticipantNotApproved)

	assert.Equal(t, KindPreconditionFailed, KindOf(wrapped))
	assert.Equal(t, KindNotFound, KindOf(ErrParticipantNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestSentinelsCompareByIdentity(t *testing.T) {
	wrapped := fmt.Errorf("auth: %w", ErrInvalidCredentials)

	assert.ErrorIs(t, wrapped, ErrInvalidCredentials)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
}

func TestValidation(t *testing.T) {
	err := Validation("score %s out of range", "innovation")

	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "score innovation out of range", e.Error())
}
