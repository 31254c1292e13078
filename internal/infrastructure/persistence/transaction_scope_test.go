package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/event"
)

func newScope(t *testing.T) (*GormTransactionScope, *event.GormOutboxRepository, *GormFinancingRepository) {
	t.Helper()
	db := newTestDB(t)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, shared.DefaultRetryPolicy())
	return NewGormTransactionScope(db, publisher), event.NewGormOutboxRepository(db), NewGormFinancingRepository(db)
}

func TestGormTransactionScope_CommitsAggregateAndEvents(t *testing.T) {
	scope, outbox, financings := newScope(t)
	ctx := context.Background()
	f := newFinancing(t, uuid.New(), "5000")

	err := scope.Execute(ctx, func(repos txscope.Repositories) error {
		if err := repos.Financings().Create(ctx, f); err != nil {
			return err
		}
		return txscope.RecordPending(ctx, repos.Events(), f)
	})
	require.NoError(t, err)
	assert.Empty(t, f.GetDomainEvents())

	stored, err := financings.FindByID(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	pending, err := outbox.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, financing.EventTypeFinancingCreated, pending[0].EventType)
	assert.Equal(t, f.ID, pending[0].AggregateID)
}

func TestGormTransactionScope_RollbackDiscardsEverything(t *testing.T) {
	scope, outbox, financings := newScope(t)
	ctx := context.Background()
	f := newFinancing(t, uuid.New(), "5000")
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos txscope.Repositories) error {
		require.NoError(t, repos.Financings().Create(ctx, f))
		require.NoError(t, txscope.RecordPending(ctx, repos.Events(), f))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := financings.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	pending, err := outbox.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
