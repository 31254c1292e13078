package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	farmapp "github.com/agrocredit/backend/internal/application/farm"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/tests/testutil"
)

func newFarmerRouter(actor *identity.Actor) (*gin.Engine, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	h := NewFarmerHandler(farmapp.NewService(scope, scope.FarmerRepo, scope.ParcelRepo, zap.NewNop()))

	r := newTestRouter(actor)
	r.POST("/farmers", h.Create)
	r.GET("/farmers", h.List)
	r.POST("/farmers/import", h.Import)
	r.GET("/farmers/:id", h.Get)
	r.PUT("/farmers/:id", h.Update)
	r.POST("/farmers/:id/parcels", h.CreateParcel)
	r.GET("/farmers/:id/parcels", h.ListParcels)
	return r, scope
}

func multipartCSV(t *testing.T, field, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "farmers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/farmers/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFarmerHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		r, scope := newFarmerRouter(&operator)
		scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(nil, nil)
		scope.FarmerRepo.On("Save", mock.Anything, mock.AnythingOfType("*farm.Farmer")).Return(nil)

		w := perform(r, http.MethodPost, "/farmers", map[string]any{
			"identity_number": "v-12.345.678",
			"name":            "Ana Pérez",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp farmapp.FarmerResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "V12345678", resp.IdentityNumber)
	})

	t.Run("duplicate", func(t *testing.T) {
		r, scope := newFarmerRouter(&operator)
		existing, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
		require.NoError(t, err)
		scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(existing, nil)

		w := perform(r, http.MethodPost, "/farmers", map[string]any{"identity_number": "V12345678", "name": "Ana"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "FARMER_EXISTS", decode(t, w).Error.Code)
	})

	t.Run("bad identity number", func(t *testing.T) {
		r, scope := newFarmerRouter(&operator)
		w := perform(r, http.MethodPost, "/farmers", map[string]any{"identity_number": "??", "name": "Ana"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, scope.Executions())
	})
}

func TestFarmerHandler_Import(t *testing.T) {
	t.Run("mixed rows", func(t *testing.T) {
		r, scope := newFarmerRouter(&operator)
		scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(nil, nil)
		scope.FarmerRepo.On("Save", mock.Anything, mock.AnythingOfType("*farm.Farmer")).Return(nil)

		csv := "identity_number,name,email\nV12345678,Ana,ana@example.com\n,Luis,\n"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, multipartCSV(t, "file", csv))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result farmapp.ImportResult
		decodeData(t, w, &result)
		assert.Equal(t, 2, result.TotalRows)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.TotalErrors)
	})

	t.Run("missing file field", func(t *testing.T) {
		r, _ := newFarmerRouter(&operator)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, multipartCSV(t, "upload", "identity_number,name\n"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing columns", func(t *testing.T) {
		r, _ := newFarmerRouter(&operator)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, multipartCSV(t, "file", "name\nAna\n"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_COLUMNS", decode(t, w).Error.Code)
	})
}

func TestFarmerHandler_Parcels(t *testing.T) {
	r, scope := newFarmerRouter(&operator)
	owner, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
	require.NoError(t, err)
	parcel, err := farm.NewParcel(owner.ID, "North field", "maize", "Portuguesa", 12.5)
	require.NoError(t, err)
	scope.ParcelRepo.On("FindByFarmer", mock.Anything, owner.ID).Return([]farm.Parcel{*parcel}, nil)

	w := perform(r, http.MethodGet, "/farmers/"+owner.ID.String()+"/parcels", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var parcels []farmapp.ParcelResponse
	decodeData(t, w, &parcels)
	require.Len(t, parcels, 1)
	assert.Equal(t, parcel.ID, parcels[0].ID)
}

func TestFarmerHandler_FarmerForbidden(t *testing.T) {
	r, _ := newFarmerRouter(&farmer)
	w := perform(r, http.MethodGet, "/farmers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
