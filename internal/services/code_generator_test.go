package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synesthesie/verification/internal/models"
)

func TestGenerateCode(t *testing.T) {
	t.Run("fixed width digits", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := GenerateCode(4)
			require.NoError(t, err)
			assert.Regexp(t, `^[0-9]{4}$`, code)
		}
	})

	t.Run("default length", func(t *testing.T) {
		code, err := GenerateCode(0)
		require.NoError(t, err)
		assert.Len(t, code, DefaultCodeLength)
	})

	t.Run("long codes", func(t *testing.T) {
		code, err := GenerateCode(12)
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{12}$`, code)
	})

	t.Run("spread over digits", func(t *testing.T) {
		seen := make(map[byte]bool)
		for i := 0; i < 500; i++ {
			code, err := GenerateCode(1)
			require.NoError(t, err)
			seen[code[0]] = true
		}
		assert.Len(t, seen, 10)
	})
}

func TestResolveName(t *testing.T) {
	name, err := ResolveName(models.Person{Email: "a@x.com", Phone: "15551234567"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", name)

	name, err = ResolveName(models.Person{Email: "  ", Phone: " 15551234567 "})
	require.NoError(t, err)
	assert.Equal(t, "15551234567", name)

	_, err = ResolveName(models.Person{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
