package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	assert.Equal(t, KindExceedsEligibility, KindOf(ErrExceedsEligibility))

	wrapped := fmt.Errorf("failed to save financing: %w", ErrConcurrencyConflict)
	assert.Equal(t, KindConcurrencyConflict, KindOf(wrapped))
	assert.True(t, KindOf(wrapped).IsRetryable())
	assert.False(t, KindValidation.IsRetryable())
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewDomainError(KindNotFound, "NOT_FOUND", "financing not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}
