package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func newStubEntry(t *testing.T, policy RetryPolicy) *OutboxEntry {
	t.Helper()
	ev := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("StubHappened", "Stub", uuid.New())}
	return NewOutboxEntry(ev, []byte(`{}`), policy)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseBackoff: time.Second, MaxBackoff: 10 * time.Second}

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(5))
	assert.Equal(t, 10*time.Second, p.Backoff(30))
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Second}

	t.Run("new entry is pending with event header copied", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, "StubHappened", entry.EventType)
		assert.Equal(t, "Stub", entry.AggregateType)
		assert.Equal(t, 2, entry.MaxRetries)
	})

	t.Run("failed entry schedules a retry then goes dead", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		require.NoError(t, entry.MarkProcessing(time.Now()))

		entry.MarkFailed("boom", policy)
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		require.NotNil(t, entry.NextRetryAt)
		assert.True(t, entry.NextRetryAt.After(time.Now()))

		require.NoError(t, entry.MarkProcessing(time.Now()))
		entry.MarkFailed("boom again", policy)
		assert.True(t, entry.IsDead())
		assert.Nil(t, entry.NextRetryAt)
		assert.Equal(t, "boom again", entry.LastError)
	})

	t.Run("sent entry cannot be claimed again", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		require.NoError(t, entry.MarkProcessing(time.Now()))
		assert.True(t, IsKind(entry.MarkProcessing(time.Now()), KindInvalidTransition), "already claimed")
		entry.MarkSent()
		assert.NotNil(t, entry.ProcessedAt)
		assert.Error(t, entry.MarkProcessing(time.Now()))
	})
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	cutoff := time.Now().Add(-time.Minute)

	t.Run("resets dead letter entry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			Status:     OutboxStatusDead,
			RetryCount: 5,
			MaxRetries: 5,
			LastError:  "some error",
		}

		require.NoError(t, entry.ResetForRetry(cutoff))
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)
	})

	t.Run("resets abandoned claim", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 1, UpdatedAt: cutoff.Add(-time.Second)}
		require.NoError(t, entry.ResetForRetry(cutoff))
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
	})

	t.Run("rejects live entries", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusProcessing, OutboxStatusSent, OutboxStatusFailed} {
			entry := &OutboxEntry{Status: status, UpdatedAt: time.Now()}
			err := entry.ResetForRetry(cutoff)
			assert.True(t, IsKind(err, KindInvalidTransition), "status %s", status)
		}
	})
}

func TestOutboxEntry_ExpireClaim(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Hour}
	cutoff := time.Now().Add(-time.Minute)

	t.Run("abandoned claim is due at once", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		require.NoError(t, entry.MarkProcessing(cutoff.Add(-time.Second)))

		require.NoError(t, entry.ExpireClaim(cutoff, policy))
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.Equal(t, "delivery claim expired", entry.LastError)
		require.NotNil(t, entry.NextRetryAt)
		assert.False(t, entry.NextRetryAt.After(time.Now()))
	})

	t.Run("last attempt goes dead", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		entry.RetryCount = 1
		require.NoError(t, entry.MarkProcessing(cutoff.Add(-time.Second)))
		require.NoError(t, entry.ExpireClaim(cutoff, policy))
		assert.True(t, entry.IsDead())
	})

	t.Run("fresh claim is kept", func(t *testing.T) {
		entry := newStubEntry(t, policy)
		require.NoError(t, entry.MarkProcessing(time.Now()))
		assert.True(t, IsKind(entry.ExpireClaim(cutoff, policy), KindInvalidTransition))
		assert.Equal(t, OutboxStatusProcessing, entry.Status)
	})
}

func TestOutboxEntry_Release(t *testing.T) {
	entry := newStubEntry(t, DefaultRetryPolicy())
	require.NoError(t, entry.MarkProcessing(time.Now()))

	entry.Release()
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)

	entry.MarkSent()
	entry.Release()
	assert.Equal(t, OutboxStatusSent, entry.Status)
}
