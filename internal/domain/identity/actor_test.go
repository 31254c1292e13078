package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/domain/shared"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"  ADMIN ", RoleAdmin},
		{"Operador", RoleOperator},
		{"inspector", RoleOperator},
		{"FARMER", RoleFarmer},
		{"Productor", RoleFarmer},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRole("superuser")
	assert.True(t, shared.IsKind(err, shared.KindUnauthorized))
}

func TestNewActor(t *testing.T) {
	subject := uuid.New()

	t.Run("farmer needs a subject", func(t *testing.T) {
		_, err := NewActor(uuid.New(), RoleFarmer, nil)
		assert.Error(t, err)

		a, err := NewActor(uuid.New(), RoleFarmer, &subject)
		require.NoError(t, err)
		assert.True(t, a.CanReadSubject(subject))
		assert.False(t, a.CanReadSubject(uuid.New()))
	})

	t.Run("rejects unknown role and nil user", func(t *testing.T) {
		_, err := NewActor(uuid.New(), Role("GUEST"), nil)
		assert.Error(t, err)
		_, err = NewActor(uuid.Nil, RoleAdmin, nil)
		assert.Error(t, err)
	})
}

func TestActor_Require(t *testing.T) {
	op := Actor{UserID: uuid.New(), Role: RoleOperator}
	assert.NoError(t, op.Require(PermPaymentRegister))
	err := op.Require(PermFinancingStatus)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))

	farmer := Actor{UserID: uuid.New(), Role: RoleFarmer}
	assert.Error(t, farmer.Require(PermFinancingCreate))

	sys := SystemActor()
	assert.True(t, sys.IsSystem())
	assert.Nil(t, sys.RecordedBy())
	assert.NoError(t, sys.Require(PermOutboxAdmin))
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "Operator", RoleOperator.DisplayName())
}

func TestActor_ScopeSubject(t *testing.T) {
	own, other := uuid.New(), uuid.New()
	farmer := Actor{UserID: uuid.New(), Role: RoleFarmer, SubjectID: &own}
	operator := Actor{UserID: uuid.New(), Role: RoleOperator}

	got, err := operator.ScopeSubject(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = operator.ScopeSubject(&other)
	require.NoError(t, err)
	assert.Equal(t, other, *got)

	got, err = farmer.ScopeSubject(nil)
	require.NoError(t, err)
	assert.Equal(t, own, *got)
	_, err = farmer.ScopeSubject(&other)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))

	_, err = Actor{UserID: uuid.New(), Role: RoleFarmer}.ScopeSubject(nil)
	assert.True(t, shared.IsKind(err, shared.KindForbidden))
}
