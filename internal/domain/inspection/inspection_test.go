package inspection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/domain/shared"
)

func newScheduled(t *testing.T) *Inspection {
	t.Helper()
	i, err := NewInspection(uuid.New(), uuid.New(), "first visit")
	require.NoError(t, err)
	require.NoError(t, i.Schedule(time.Now().Add(24*time.Hour), nil))
	return i
}

func TestNewInspection(t *testing.T) {
	i, err := NewInspection(uuid.New(), uuid.New(), "  ")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, i.Status)
	assert.Empty(t, i.Notes)

	_, err = NewInspection(uuid.Nil, uuid.New(), "")
	assert.True(t, shared.IsKind(err, shared.KindValidation))
	_, err = NewInspection(uuid.New(), uuid.Nil, "")
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestInspection_ForwardOnly(t *testing.T) {
	i, err := NewInspection(uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	assert.True(t, shared.IsKind(i.Start(), shared.KindInvalidTransition), "cannot start before scheduling")
	assert.Error(t, i.Schedule(time.Time{}, nil))

	inspector := uuid.New()
	require.NoError(t, i.Schedule(time.Now(), &inspector))
	assert.Equal(t, StatusScheduled, i.Status)
	assert.Equal(t, &inspector, i.InspectorID)
	assert.True(t, shared.IsKind(i.Schedule(time.Now(), nil), shared.KindInvalidTransition))

	require.NoError(t, i.Start())
	assert.Equal(t, StatusInProgress, i.Status)
	assert.NotNil(t, i.StartedAt)
	assert.True(t, shared.IsKind(i.Start(), shared.KindInvalidTransition))
}

func TestInspection_Approve(t *testing.T) {
	t.Run("from scheduled raises approval event", func(t *testing.T) {
		i := newScheduled(t)
		by := uuid.New()
		form := NewFormData(FormDataV1{Crop: "maiz"})

		err := i.Approve("looks good", decimal.NewFromInt(10000), form, &by)
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, i.Status)
		assert.True(t, i.Status.IsApproved())
		assert.NotNil(t, i.ApprovedAt)
		assert.Equal(t, "looks good", i.Notes)
		assert.True(t, decimal.NewFromInt(10000).Equal(*i.EstimatedHarvestValue))

		events := i.GetDomainEvents()
		require.Len(t, events, 1)
		ev, ok := events[0].(*InspectionApprovedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeInspectionApproved, ev.EventType())
		assert.Equal(t, i.ParcelID, ev.ParcelID)
		assert.Equal(t, i.FarmerID, ev.FarmerID)
		assert.True(t, decimal.NewFromInt(10000).Equal(ev.EstimatedHarvestValue))
		assert.Equal(t, &by, ev.ApprovedBy)
	})

	t.Run("from in progress", func(t *testing.T) {
		i := newScheduled(t)
		require.NoError(t, i.Start())
		require.NoError(t, i.Approve("", decimal.NewFromInt(500), FormData{}, nil))
		assert.Equal(t, "first visit", i.Notes)
	})

	t.Run("from pending is rejected", func(t *testing.T) {
		i, err := NewInspection(uuid.New(), uuid.New(), "")
		require.NoError(t, err)
		err = i.Approve("", decimal.NewFromInt(1), FormData{}, nil)
		assert.True(t, shared.IsKind(err, shared.KindInvalidTransition))
		assert.Equal(t, StatusPending, i.Status)
	})

	t.Run("negative estimate is a validation error", func(t *testing.T) {
		i := newScheduled(t)
		err := i.Approve("", decimal.NewFromInt(-1), FormData{}, nil)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
		assert.Equal(t, StatusScheduled, i.Status)
	})

	t.Run("approving twice fails and leaves the record unchanged", func(t *testing.T) {
		i := newScheduled(t)
		require.NoError(t, i.Approve("ok", decimal.NewFromInt(100), FormData{}, nil))
		i.ClearDomainEvents()
		approvedAt := *i.ApprovedAt

		err := i.Approve("again", decimal.NewFromInt(999), FormData{}, nil)
		assert.True(t, shared.IsKind(err, shared.KindInvalidTransition))
		assert.Equal(t, "ok", i.Notes)
		assert.True(t, decimal.NewFromInt(100).Equal(*i.EstimatedHarvestValue))
		assert.Equal(t, approvedAt, *i.ApprovedAt)
		assert.Empty(t, i.GetDomainEvents())
	})
}

func TestInspection_Reject(t *testing.T) {
	i := newScheduled(t)
	assert.True(t, shared.IsKind(i.Reject(" ", nil), shared.KindValidation))

	require.NoError(t, i.Reject("flooded parcel", nil))
	assert.Equal(t, StatusCancelled, i.Status)
	assert.Equal(t, "flooded parcel", i.RejectionReason)
	require.Len(t, i.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeInspectionRejected, i.GetDomainEvents()[0].EventType())

	for _, op := range []func() error{
		func() error { return i.Reject("again", nil) },
		func() error { return i.Approve("", decimal.NewFromInt(1), FormData{}, nil) },
		func() error { return i.Start() },
		func() error { return i.Schedule(time.Now(), nil) },
	} {
		assert.True(t, shared.IsKind(op(), shared.KindInvalidTransition))
	}
	assert.Equal(t, StatusCancelled, i.Status)
}

func TestInspection_IsLatestFor(t *testing.T) {
	older := newScheduled(t)
	newer := newScheduled(t)
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	assert.True(t, newer.IsLatestFor(older))
	assert.False(t, older.IsLatestFor(newer))
	assert.True(t, older.IsLatestFor(nil))
}
