package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("a@x.com"))
	assert.True(t, ValidateEmail(" User.Name+tag@Example.org "))
	assert.False(t, ValidateEmail("a@x"))
	assert.False(t, ValidateEmail("15551234567"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("15551234567"))
	assert.True(t, ValidatePhone("+1 (555) 123-4567"))
	assert.False(t, ValidatePhone("12ab"))
	assert.False(t, ValidatePhone(""))
	assert.Equal(t, "+15551234567", NormalizePhone(" +1 (555) 123-4567 "))
}

func TestValidateCode(t *testing.T) {
	assert.True(t, ValidateCode("0042"))
	assert.False(t, ValidateCode("42"))
	assert.False(t, ValidateCode("12a4"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  a\x00bc "))
}
