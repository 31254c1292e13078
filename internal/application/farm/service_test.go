package farm

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/csvimport"
	"github.com/agrocredit/backend/tests/testutil"
)

var (
	operator = identity.Actor{UserID: uuid.New(), Role: identity.RoleOperator}
	farmer   = identity.Actor{UserID: uuid.New(), Role: identity.RoleFarmer}
)

func newService() (*Service, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	return NewService(scope, scope.FarmerRepo, scope.ParcelRepo, zap.NewNop()), scope
}

func TestService_CreateFarmer(t *testing.T) {
	svc, scope := newService()
	scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(nil, nil)
	scope.FarmerRepo.On("Save", mock.Anything, mock.AnythingOfType("*farm.Farmer")).Return(nil)

	resp, err := svc.CreateFarmer(context.Background(), operator, CreateFarmerRequest{
		IdentityNumber: "v-12.345.678",
		Name:           "Ana Pérez",
		Phone:          "0414",
	})
	require.NoError(t, err)
	assert.Equal(t, "V12345678", resp.IdentityNumber)
	assert.Equal(t, "Ana Pérez", resp.Name)
	scope.AssertExpectations(t)
}

func TestService_CreateFarmer_Duplicate(t *testing.T) {
	svc, scope := newService()
	existing, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
	require.NoError(t, err)
	scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(existing, nil)

	_, err = svc.CreateFarmer(context.Background(), operator, CreateFarmerRequest{IdentityNumber: "V12345678", Name: "Ana"})
	assert.True(t, shared.IsKind(err, shared.KindAlreadyExists))
	scope.FarmerRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_FarmerCannotManageFarms(t *testing.T) {
	svc, scope := newService()

	_, err := svc.CreateFarmer(context.Background(), farmer, CreateFarmerRequest{IdentityNumber: "V12345678", Name: "Ana"})
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.ListFarmers(context.Background(), farmer, ListFarmersQuery{})
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	_, err = svc.ImportFarmers(context.Background(), farmer, strings.NewReader("identity_number,name\nV1,Ana"))
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
	assert.Equal(t, 0, scope.Executions())
}

func TestService_UpdateFarmer(t *testing.T) {
	svc, scope := newService()
	f, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
	require.NoError(t, err)
	scope.FarmerRepo.On("FindByID", mock.Anything, f.ID).Return(f, nil)
	scope.FarmerRepo.On("Save", mock.Anything, f).Return(nil)

	resp, err := svc.UpdateFarmer(context.Background(), operator, f.ID, UpdateFarmerRequest{Name: "Ana María", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", resp.Name)
	assert.Equal(t, "ana@example.com", resp.Email)

	missing := uuid.New()
	scope.FarmerRepo.On("FindByID", mock.Anything, missing).Return(nil, nil)
	_, err = svc.UpdateFarmer(context.Background(), operator, missing, UpdateFarmerRequest{Name: "x"})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestService_GetAndListFarmers(t *testing.T) {
	svc, scope := newService()
	f, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
	require.NoError(t, err)
	scope.FarmerRepo.On("FindByID", mock.Anything, f.ID).Return(f, nil)
	scope.FarmerRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter farm.FarmerFilter) bool {
		return filter.Search == "ana" && filter.Page.Size == shared.DefaultPageSize
	})).Return([]farm.Farmer{*f}, int64(1), nil)

	got, err := svc.GetFarmer(context.Background(), operator, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	page, err := svc.ListFarmers(context.Background(), operator, ListFarmersQuery{Search: "ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ana", page.Items[0].Name)
}

func TestService_CreateParcel(t *testing.T) {
	svc, scope := newService()
	owner, err := farm.NewFarmer("V12345678", farm.Contact{Name: "Ana"})
	require.NoError(t, err)
	scope.FarmerRepo.On("FindByID", mock.Anything, owner.ID).Return(owner, nil)
	scope.ParcelRepo.On("Save", mock.Anything, mock.AnythingOfType("*farm.Parcel")).Return(nil)

	resp, err := svc.CreateParcel(context.Background(), operator, owner.ID, CreateParcelRequest{Name: "Lote 1", Crop: "maiz", AreaHectares: 12.5})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, resp.FarmerID)
	assert.Equal(t, 12.5, resp.AreaHectares)

	stranger := uuid.New()
	scope.FarmerRepo.On("FindByID", mock.Anything, stranger).Return(nil, nil)
	_, err = svc.CreateParcel(context.Background(), operator, stranger, CreateParcelRequest{Name: "Lote 2"})
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
	scope.ParcelRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestService_ListParcels(t *testing.T) {
	svc, scope := newService()
	farmerID := uuid.New()
	p, err := farm.NewParcel(farmerID, "Lote 1", "", "", 3)
	require.NoError(t, err)
	scope.ParcelRepo.On("FindByFarmer", mock.Anything, farmerID).Return([]farm.Parcel{*p}, nil)

	out, err := svc.ListParcels(context.Background(), operator, farmerID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, p.ID, out[0].ID)
}

func TestService_ImportFarmers(t *testing.T) {
	svc, scope := newService()
	registered, err := farm.NewFarmer("E87654321", farm.Contact{Name: "Luis"})
	require.NoError(t, err)

	scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "V12345678").Return(nil, nil)
	scope.FarmerRepo.On("FindByIdentityNumber", mock.Anything, "E87654321").Return(registered, nil)
	scope.FarmerRepo.On("Save", mock.Anything, mock.AnythingOfType("*farm.Farmer")).Return(nil).Once()

	file := strings.Join([]string{
		"Identity_Number,Name,Email",
		"V12345678,Ana,ana@example.com",
		"E87654321,Luis,",
		"V12345678,Ana again,",
		"??,Nobody,",
		",Nameless,",
		"V11111111,Bad Mail,not-an-email",
	}, "\n")

	result, err := svc.ImportFarmers(context.Background(), operator, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 6, result.TotalRows)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 4, result.TotalErrors)

	codes := make(map[int]string)
	for _, e := range result.Errors {
		codes[e.Row] = e.Code
	}
	assert.Equal(t, map[int]string{
		4: csvimport.ErrCodeDuplicate,
		5: csvimport.ErrCodeInvalidFormat,
		6: csvimport.ErrCodeRequired,
		7: csvimport.ErrCodeInvalidFormat,
	}, codes)
	assert.Equal(t, 1, scope.Executions())
	scope.AssertExpectations(t)
}

func TestService_ImportFarmers_BadFile(t *testing.T) {
	svc, scope := newService()

	_, err := svc.ImportFarmers(context.Background(), operator, strings.NewReader(""))
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.ImportFarmers(context.Background(), operator, strings.NewReader("name\nAna"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity_number")
	assert.Equal(t, 0, scope.Executions())
}
