package event

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
)

var (
	admin    = identity.Actor{UserID: uuid.New(), Role: identity.RoleAdmin}
	operator = identity.Actor{UserID: uuid.New(), Role: identity.RoleOperator}
)

// memOutbox keeps entries in insertion order
type memOutbox struct {
	entries   []*shared.OutboxEntry
	updateErr error
}

func (r *memOutbox) add(status shared.OutboxStatus) *shared.OutboxEntry {
	e := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "InspectionApproved",
		AggregateID:   uuid.New(),
		AggregateType: "Inspection",
		Status:        status,
		MaxRetries:    5,
		CreatedAt:     time.Now().Add(time.Duration(len(r.entries)) * time.Second),
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = 5
		e.LastError = "productive subject upsert: connection reset"
	}
	r.entries = append(r.entries, e)
	return e
}

func (r *memOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memOutbox) FindPending(context.Context, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].CreatedAt.Before(dead[j].CreatedAt) })
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, int64(len(dead)), nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], int64(len(dead)), nil
}

func (r *memOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memOutbox) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) ExpireClaims(context.Context, time.Time, int, shared.RetryPolicy) (int, error) {
	return 0, nil
}

func (r *memOutbox) Update(context.Context, *shared.OutboxEntry) error {
	return r.updateErr
}

func (r *memOutbox) DeleteSentBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestOutboxService_DeadLetters(t *testing.T) {
	repo := &memOutbox{}
	for i := 0; i < 5; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())

	page, err := svc.DeadLetters(context.Background(), admin, DeadLetterQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, repo.entries[2].ID, page.Items[0].ID)
	assert.Equal(t, "DEAD", page.Items[0].Status)
	assert.Equal(t, 5, page.Items[0].Attempts)

	page, err = svc.DeadLetters(context.Background(), admin, DeadLetterQuery{})
	require.NoError(t, err)
	assert.Equal(t, shared.DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, 5)
}

func TestOutboxService_Requeue(t *testing.T) {
	repo := &memOutbox{}
	dead := repo.add(shared.OutboxStatusDead)
	svc := NewOutboxService(repo, zap.NewNop())

	resp, err := svc.Requeue(context.Background(), admin, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Zero(t, resp.Attempts)
	assert.Empty(t, resp.LastError)
	assert.Equal(t, shared.OutboxStatusPending, dead.Status)
}

func TestOutboxService_Requeue_Errors(t *testing.T) {
	repo := &memOutbox{}
	pending := repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Requeue(ctx, admin, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = svc.Requeue(ctx, admin, pending.ID)
	assert.True(t, shared.IsKind(err, shared.KindInvalidTransition))

	dead := repo.add(shared.OutboxStatusDead)
	repo.updateErr = errors.New("connection refused")
	_, err = svc.Requeue(ctx, admin, dead.ID)
	assert.ErrorIs(t, err, repo.updateErr)
}

func TestOutboxService_Requeue_AbandonedClaim(t *testing.T) {
	repo := &memOutbox{}
	stuck := repo.add(shared.OutboxStatusProcessing)
	stuck.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	live := repo.add(shared.OutboxStatusProcessing)
	live.UpdatedAt = time.Now().UTC()
	svc := NewOutboxService(repo, zap.NewNop(), WithClaimTimeout(10*time.Minute))
	ctx := context.Background()

	resp, err := svc.Requeue(ctx, admin, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", resp.Status)

	_, err = svc.Requeue(ctx, admin, live.ID)
	assert.True(t, shared.IsKind(err, shared.KindInvalidTransition), "a claim still in its lease is left alone")
	assert.Equal(t, shared.OutboxStatusProcessing, live.Status)
}

func TestOutboxService_RequeueAllDead(t *testing.T) {
	repo := &memOutbox{}
	for i := 0; i < requeueBatch+3; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	sent := repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, zap.NewNop())

	result, err := svc.RequeueAllDead(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(requeueBatch+3), result.Requeued)
	for _, e := range repo.entries {
		if e.ID == sent.ID {
			assert.Equal(t, shared.OutboxStatusSent, e.Status)
			continue
		}
		assert.Equal(t, shared.OutboxStatusPending, e.Status)
	}
}

func TestOutboxService_Stats(t *testing.T) {
	repo := &memOutbox{}
	for _, s := range []shared.OutboxStatus{
		shared.OutboxStatusPending, shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent, shared.OutboxStatusSent, shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.add(s)
	}

	stats, err := NewOutboxService(repo, zap.NewNop()).Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, StatsResponse{
		Pending: 2, Processing: 1, Sent: 3, Failed: 1, Dead: 1,
		Total: 8, Backlog: 4,
	}, *stats)
}

func TestOutboxService_AdminOnly(t *testing.T) {
	repo := &memOutbox{}
	dead := repo.add(shared.OutboxStatusDead)
	svc := NewOutboxService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Requeue(ctx, operator, dead.ID)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.RequeueAllDead(ctx, operator)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.Stats(ctx, operator)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.DeadLetters(ctx, operator, DeadLetterQuery{})
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.Entry(ctx, operator, dead.ID)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))

	assert.Equal(t, shared.OutboxStatusDead, dead.Status)
}
