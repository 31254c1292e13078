package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParser(t *testing.T) {
	t.Run("BOM is stripped and headers are lower-cased", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("\xEF\xBB\xBFIdentity_Number, Name\nV1,Ana"))
		require.NoError(t, err)
		assert.Equal(t, []string{"identity_number", "name"}, p.Headers())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := NewParser(strings.NewReader("name\n\xff\xfe\xfd"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("a;b\n1;2"), WithDelimiter(';'))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, p.Headers())
		assert.Equal(t, []string{"c"}, p.Missing("a", "c"))
	})
}

func TestParser_Rows(t *testing.T) {
	p, err := NewParser(strings.NewReader("a,b\n 1 ,2\n,\n3\n"))
	require.NoError(t, err)

	rows, err := p.Rows(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "1", rows[0].Get("a"))
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "", rows[1].Get("b"))

	p, err = NewParser(strings.NewReader("a\n1\n2\n3\n"))
	require.NoError(t, err)
	rows, err = p.Rows(2)
	assert.Error(t, err)
	assert.Len(t, rows, 2)
}

func TestValidator(t *testing.T) {
	errs := NewErrorCollection(2)
	v := NewValidator([]Rule{
		Column("id").Required().Unique().Check(func(s string) error {
			if !strings.HasPrefix(s, "V") {
				return errors.New("must start with V")
			}
			return nil
		}).Build(),
		Column("name").Required().MaxLength(5).Build(),
		Column("email").Email().Build(),
	}, errs)

	row := func(line int, id, name, email string) *Row {
		return &Row{Line: line, Data: map[string]string{"id": id, "name": name, "email": email}}
	}

	assert.True(t, v.Validate(row(2, "V1", "Ana", "")))
	assert.False(t, v.Validate(row(3, "v1", "Ana", "")))
	assert.False(t, v.Validate(row(4, "V1", "Ana", "")))
	assert.False(t, v.Validate(row(5, "V2", "Anabella", "not-mail")))

	assert.Equal(t, 4, errs.TotalCount())
	assert.True(t, errs.IsTruncated())
	require.Len(t, errs.Errors(), 2)
	assert.Equal(t, ErrCodeInvalidFormat, errs.Errors()[0].Code)
	assert.Equal(t, ErrCodeDuplicate, errs.Errors()[1].Code)
	assert.Equal(t, "row 4, column 'id': duplicate value, first seen on row 2", errs.Errors()[1].Error())
}
