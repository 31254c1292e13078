package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payments index", "add_payments_index"},
		{"Add-Payments-Index", "add_payments_index"},
		{"ADD_PAYMENTS_INDEX", "add_payments_index"},
		{"add__payments__index", "add_payments_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_Sequential(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create farmers", "farm registry")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_farmers.up.sql"), first.UpPath)

	second, err := CreateMigration(dir, "add payments index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_payments_index.down.sql"), second.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "farm registry")

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_second.up.sql":   {},
		"000001_first.up.sql":    {},
		"000001_first.down.sql":  {},
		"000002_second.down.sql": {},
		"000003_third.up.sql":    {},
		"README.md":              {},
		"notanumber_x.up.sql":    {},
	}

	entries, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Version: 1, Name: "first", HasDown: true}, entries[0])
	assert.Equal(t, Entry{Version: 3, Name: "third", HasDown: false}, entries[2])
}

func TestEmbeddedMigrations_AreContiguousAndReversible(t *testing.T) {
	entries, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "gap before %s", e.Name)
		assert.True(t, e.HasDown, "%s has no down migration", e.Name)
	}
}
