package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	inspectionapp "github.com/agrocredit/backend/internal/application/inspection"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/interfaces/http/dto"
	"github.com/agrocredit/backend/tests/testutil"
)

func newInspectionRouter(actor *identity.Actor) (*gin.Engine, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	h := NewInspectionHandler(inspectionapp.NewService(scope, scope.InspectionRepo, scope.ParcelRepo, zap.NewNop()))

	r := newTestRouter(actor)
	r.POST("/inspections", h.Create)
	r.GET("/inspections", h.List)
	r.GET("/inspections/:id", h.Get)
	r.POST("/inspections/:id/schedule", h.Schedule)
	r.POST("/inspections/:id/start", h.Start)
	r.POST("/inspections/:id/approve", h.Approve)
	r.POST("/inspections/:id/reject", h.Reject)
	return r, scope
}

func inProgressInspection(t *testing.T) *inspection.Inspection {
	t.Helper()
	insp, err := inspection.NewInspection(uuid.New(), uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, insp.Schedule(time.Now().Add(time.Hour), nil))
	require.NoError(t, insp.Start())
	insp.ClearDomainEvents()
	return insp
}

func TestInspectionHandler_Create(t *testing.T) {
	r, scope := newInspectionRouter(&operator)
	parcel, err := farm.NewParcel(uuid.New(), "North field", "maize", "Portuguesa", 12.5)
	require.NoError(t, err)

	scope.ParcelRepo.On("FindByID", mock.Anything, parcel.ID).Return(parcel, nil)
	scope.InspectionRepo.On("Create", mock.Anything, mock.AnythingOfType("*inspection.Inspection")).Return(nil)

	w := perform(r, http.MethodPost, "/inspections", map[string]any{"parcel_id": parcel.ID})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp inspectionapp.InspectionResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, parcel.FarmerID, resp.FarmerID)
	scope.AssertExpectations(t)
}

func TestInspectionHandler_Create_BadInput(t *testing.T) {
	r, scope := newInspectionRouter(&operator)

	w := perform(r, http.MethodPost, "/inspections", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)

	w = perform(r, http.MethodPost, "/inspections", map[string]any{"notes": "no parcel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "parcel_id", resp.Error.Details[0].Field)

	assert.Zero(t, scope.Executions())
}

func TestInspectionHandler_Approve(t *testing.T) {
	r, scope := newInspectionRouter(&operator)
	insp := inProgressInspection(t)

	scope.InspectionRepo.On("FindByIDForUpdate", mock.Anything, insp.ID).Return(insp, nil)
	scope.InspectionRepo.On("SaveWithLock", mock.Anything, insp).Return(nil)

	w := perform(r, http.MethodPost, "/inspections/"+insp.ID.String()+"/approve", map[string]any{
		"estimated_harvest_value": "15000.00",
		"notes":                   "good stand",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp inspectionapp.InspectionResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "COMPLETED", resp.Status)
	require.NotNil(t, resp.EstimatedHarvestValue)
	assert.Equal(t, "15000", resp.EstimatedHarvestValue.String())
	assert.Equal(t, []string{inspection.EventTypeInspectionApproved}, scope.CommittedEventTypes())
}

func TestInspectionHandler_ApproveTwiceConflicts(t *testing.T) {
	r, scope := newInspectionRouter(&operator)
	insp := inProgressInspection(t)
	require.NoError(t, insp.Reject("flooded", nil))

	scope.InspectionRepo.On("FindByIDForUpdate", mock.Anything, insp.ID).Return(insp, nil)

	w := perform(r, http.MethodPost, "/inspections/"+insp.ID.String()+"/approve", map[string]any{
		"estimated_harvest_value": "100",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, scope.CommittedEvents())
}

func TestInspectionHandler_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r, scope := newInspectionRouter(&operator)
		id := uuid.New()
		scope.InspectionRepo.On("FindByID", mock.Anything, id).Return(nil, nil)

		w := perform(r, http.MethodGet, "/inspections/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		r, _ := newInspectionRouter(&operator)
		w := perform(r, http.MethodGet, "/inspections/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("farmer is forbidden", func(t *testing.T) {
		r, _ := newInspectionRouter(&farmer)
		w := perform(r, http.MethodGet, "/inspections/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		r, _ := newInspectionRouter(nil)
		w := perform(r, http.MethodGet, "/inspections/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestInspectionHandler_List(t *testing.T) {
	r, scope := newInspectionRouter(&operator)
	items := []inspection.Inspection{*inProgressInspection(t), *inProgressInspection(t)}
	scope.InspectionRepo.On("FindAll", mock.Anything, mock.AnythingOfType("inspection.Filter")).Return(items, int64(12), nil)

	w := perform(r, http.MethodGet, "/inspections?status=IN_PROGRESS&page=2&page_size=5", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 5, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestInspectionHandler_List_RejectsUnknownStatus(t *testing.T) {
	r, _ := newInspectionRouter(&operator)
	w := perform(r, http.MethodGet, "/inspections?status=DONE", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
