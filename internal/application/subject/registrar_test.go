package subject

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
	"github.com/agrocredit/backend/internal/domain/subject"
	"github.com/agrocredit/backend/tests/testutil"
)

var operator = identity.Actor{UserID: uuid.New(), Role: identity.RoleOperator}

func strptr(s string) *string { return &s }

func newRegistrar() (*Registrar, *testutil.FakeScope) {
	scope := testutil.NewFakeScope()
	return NewRegistrar(scope, scope.SubjectRepo, zap.NewNop()), scope
}

func existingSubject(t *testing.T, idNum string) *subject.ProductiveSubject {
	t.Helper()
	s, err := subject.NewProductiveSubject(valueobject.MustIdentityNumber(idNum), subject.Attributes{
		Name:  strptr("Ana Pérez"),
		Phone: strptr("0414-1111111"),
	})
	require.NoError(t, err)
	return s
}

func TestRegistrar_Upsert_CreatesMissingSubject(t *testing.T) {
	reg, scope := newRegistrar()
	ctx := context.Background()

	scope.SubjectRepo.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(s *subject.ProductiveSubject) bool {
		return s.IdentityNumber().String() == "V12345678" && s.Name == "Ana"
	})).Return(true, nil)

	resp, err := reg.Upsert(ctx, operator, UpsertSubjectRequest{IdentityNumber: " v-12.345.678 ", Name: strptr("Ana")})
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, "V12345678", resp.IdentityNumber)
	assert.Equal(t, 1, resp.Version)
	scope.SubjectRepo.AssertNotCalled(t, "FindByIdentityNumberForUpdate", mock.Anything, mock.Anything)
	scope.AssertExpectations(t)
}

func TestRegistrar_Upsert_MergesIntoExistingSubject(t *testing.T) {
	reg, scope := newRegistrar()
	ctx := context.Background()
	existing := existingSubject(t, "V12345678")

	scope.SubjectRepo.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, nil)
	scope.SubjectRepo.On("FindByIdentityNumberForUpdate", mock.Anything, "V12345678").Return(existing, nil)
	scope.SubjectRepo.On("SaveWithLock", mock.Anything, existing).Return(nil)

	resp, err := reg.Upsert(ctx, operator, UpsertSubjectRequest{
		IdentityNumber: "V12345678",
		Phone:          strptr("0424-2222222"),
	})
	require.NoError(t, err)
	assert.False(t, resp.Created)
	assert.Equal(t, existing.ID, resp.ID)
	assert.Equal(t, "Ana Pérez", resp.Name, "omitted attributes are kept")
	assert.Equal(t, "0424-2222222", resp.Phone)
	scope.AssertExpectations(t)
}

func TestRegistrar_Upsert_UnchangedSubjectIsNotSaved(t *testing.T) {
	reg, scope := newRegistrar()
	ctx := context.Background()
	existing := existingSubject(t, "V12345678")

	scope.SubjectRepo.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, nil)
	scope.SubjectRepo.On("FindByIdentityNumberForUpdate", mock.Anything, "V12345678").Return(existing, nil)

	resp, err := reg.Upsert(ctx, operator, UpsertSubjectRequest{IdentityNumber: "V12345678", Name: strptr("Ana Pérez")})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resp.ID)
	scope.SubjectRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestRegistrar_Upsert_Validation(t *testing.T) {
	reg, scope := newRegistrar()
	ctx := context.Background()

	_, err := reg.Upsert(ctx, operator, UpsertSubjectRequest{IdentityNumber: "   "})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = reg.Upsert(ctx, operator, UpsertSubjectRequest{IdentityNumber: "not a document"})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	farmer := identity.Actor{UserID: uuid.New(), Role: identity.RoleFarmer, SubjectID: &uuid.UUID{}}
	_, err = reg.Upsert(ctx, farmer, UpsertSubjectRequest{IdentityNumber: "V12345678"})
	assert.True(t, shared.IsKind(err, shared.KindForbidden))

	assert.Zero(t, scope.Executions())
}

func TestRegistrar_Get(t *testing.T) {
	reg, scope := newRegistrar()
	ctx := context.Background()
	own := existingSubject(t, "V12345678")
	other := uuid.New()
	farmer := identity.Actor{UserID: uuid.New(), Role: identity.RoleFarmer, SubjectID: &own.ID}

	scope.SubjectRepo.On("FindByID", mock.Anything, own.ID).Return(own, nil)

	resp, err := reg.Get(ctx, farmer, own.ID)
	require.NoError(t, err)
	assert.Equal(t, "V12345678", resp.IdentityNumber)

	_, err = reg.Get(ctx, farmer, other)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))

	scope.SubjectRepo.On("FindByID", mock.Anything, other).Return(nil, nil)
	_, err = reg.Get(ctx, operator, other)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}
