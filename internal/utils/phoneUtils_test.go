package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	t.Run("strips formatting from a bare subscriber number", func(t *testing.T) {
		assert.Equal(t, "48500123456", NormalizePhone("500 123 456"))
		assert.Equal(t, "48500123456", NormalizePhone("500-123-456"))
	})

	t.Run("expands a bare 9-digit number", func(t *testing.T) {
		assert.Equal(t, "48500123456", NormalizePhone("500123456"))
	})

	t.Run("passes through an already prefixed number", func(t *testing.T) {
		assert.Equal(t, "48500123456", NormalizePhone("48500123456"))
		assert.Equal(t, "48500123456", NormalizePhone("+48 500 123 456"))
	})

	t.Run("is idempotent on canonical input", func(t *testing.T) {
		canonical := NormalizePhone("+48 500 123 456")
		assert.Equal(t, canonical, NormalizePhone(canonical))
	})

	t.Run("returns stripped digits for malformed input", func(t *testing.T) {
		assert.Equal(t, "12345", NormalizePhone("1 23-45"))
		assert.Equal(t, "", NormalizePhone("abc"))
	})
}

func TestPhoneLookupVariants(t *testing.T) {
	variants := PhoneLookupVariants("500 123 456")

	assert.Equal(t, []string{"48500123456", "+48500123456", "500 123 456"}, variants)
}
