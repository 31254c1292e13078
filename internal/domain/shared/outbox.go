package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// RetryPolicy bounds outbox redelivery. Delay doubles per attempt, capped at MaxBackoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultClaimTimeout is how long a delivery may hold its claim before the
// entry is considered abandoned
const DefaultClaimTimeout = 5 * time.Minute

// DefaultRetryPolicy returns 5 attempts starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseBackoff: time.Second,
		MaxBackoff:  5 * time.Minute,
	}
}

// Backoff is the wait before retrying after the given failed attempt,
// counted from 1
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for ; attempt > 1; attempt-- {
		if d *= 2; p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// OutboxEntry is a serialized domain event waiting to be delivered to handlers.
// It is written in the same transaction as the aggregate change that raised it.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event for delivery
func NewOutboxEntry(event DomainEvent, payload []byte, policy RetryPolicy) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    policy.MaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkProcessing claims the entry for delivery. Only PENDING rows and FAILED
// rows waiting for a retry can be claimed.
func (e *OutboxEntry) MarkProcessing(at time.Time) error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return NewDomainError(KindInvalidTransition, "OUTBOX_NOT_CLAIMABLE", "entry is "+string(e.Status))
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = at
	return nil
}

// MarkSent marks the entry as delivered
func (e *OutboxEntry) MarkSent() {
	now := time.Now().UTC()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed delivery. After MaxRetries failures the entry
// becomes DEAD and waits for a manual retry.
func (e *OutboxEntry) MarkFailed(errMsg string, policy RetryPolicy) {
	now := time.Now().UTC()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(policy.Backoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ClaimExpired reports whether the entry was claimed before cutoff and never
// finished, as happens when a worker dies mid-delivery
func (e *OutboxEntry) ClaimExpired(cutoff time.Time) bool {
	return e.Status == OutboxStatusProcessing && e.UpdatedAt.Before(cutoff)
}

// ExpireClaim turns an abandoned claim into a failed attempt that is due
// immediately, or a dead letter once the attempts are used up.
func (e *OutboxEntry) ExpireClaim(cutoff time.Time, policy RetryPolicy) error {
	if !e.ClaimExpired(cutoff) {
		return NewDomainError(KindInvalidTransition, "OUTBOX_CLAIM_HELD", "entry is not an expired claim")
	}
	e.MarkFailed("delivery claim expired", policy)
	if e.NextRetryAt != nil {
		due := e.UpdatedAt
		e.NextRetryAt = &due
	}
	return nil
}

// Release hands a claimed entry back to the queue without counting an
// attempt. Used when delivery is interrupted by shutdown.
func (e *OutboxEntry) Release() {
	if e.Status != OutboxStatusProcessing {
		return
	}
	e.Status = OutboxStatusPending
	e.UpdatedAt = time.Now().UTC()
}

// ResetForRetry puts a dead entry, or one whose claim expired before
// staleBefore, back in the queue with a fresh attempt budget
func (e *OutboxEntry) ResetForRetry(staleBefore time.Time) error {
	if e.Status != OutboxStatusDead && !e.ClaimExpired(staleBefore) {
		return NewDomainError(KindInvalidTransition, "OUTBOX_NOT_RETRYABLE", "only dead letters and abandoned claims can be retried")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// IsDead returns true if the entry is in dead letter status
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	// Save persists one or more outbox entries
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending retrieves pending entries up to the specified limit
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable retrieves failed entries whose retry time has passed
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// FindDead retrieves dead letter entries with pagination
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims entries that no other worker holds and returns them
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// ExpireClaims fails up to limit PROCESSING entries claimed before
	// cutoff so they are retried, and returns how many it touched
	ExpireClaims(ctx context.Context, cutoff time.Time, limit int, policy RetryPolicy) (int, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteSentBefore removes delivered entries processed before the cutoff
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
