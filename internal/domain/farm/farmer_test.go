package farm

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/domain/shared"
)

func TestNewFarmer(t *testing.T) {
	f, err := NewFarmer("v-12.345.678", Contact{Name: " Ana Pérez ", Phone: "0414"})
	require.NoError(t, err)
	assert.Equal(t, "V12345678", f.IdentityNumber.String())
	assert.Equal(t, "Ana Pérez", f.Name)
	assert.Equal(t, 1, f.Version)

	_, err = NewFarmer("V12345678", Contact{})
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = NewFarmer("??", Contact{Name: "x"})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestFarmer_UpdateContact(t *testing.T) {
	f, err := NewFarmer("V12345678", Contact{Name: "Ana"})
	require.NoError(t, err)

	require.NoError(t, f.UpdateContact(Contact{Name: "Ana María", Email: "ana@example.com"}))
	assert.Equal(t, "Ana María", f.Name)
	assert.Equal(t, "V12345678", f.IdentityNumber.String())

	assert.Error(t, f.UpdateContact(Contact{Name: "  "}))
}

func TestNewParcel(t *testing.T) {
	p, err := NewParcel(uuid.New(), "Lote 1", "maiz", "Portuguesa", 12.5)
	require.NoError(t, err)
	assert.Equal(t, "Lote 1", p.Name)

	_, err = NewParcel(uuid.Nil, "Lote 1", "", "", 1)
	assert.Error(t, err)
	_, err = NewParcel(uuid.New(), "", "", "", 1)
	assert.Error(t, err)
	_, err = NewParcel(uuid.New(), "x", "", "", -1)
	assert.Error(t, err)
}
