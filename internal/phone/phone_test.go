package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("39")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare national number gets country code", "3331234567", "+393331234567"},
		{"separators and spaces are stripped", "333 123-4567", "+393331234567"},
		{"plus and spaces collapse to digits", "+39 333 123 4567", "+393331234567"},
		{"already has country code", "393331234567", "+393331234567"},
		{"parenthesised input", "(333) 123.4567", "+393331234567"},
		{"eleven digit foreign number untouched", "15551234567", "+15551234567"},
		{"ten digits already starting with country code", "3912345678", "+3912345678"},
		{"short number passes through", "4242", "+4242"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizer_Normalize_Invalid(t *testing.T) {
	n := NewNormalizer("39")

	t.Run("empty input", func(t *testing.T) {
		_, err := n.Normalize("")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("no digits at all", func(t *testing.T) {
		_, err := n.Normalize("call me maybe")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestNormalizer_DefaultCountryCode(t *testing.T) {
	n := NewNormalizer("")

	got, err := n.Normalize("3331234567")
	assert.NoError(t, err)
	assert.Equal(t, "+393331234567", got)
}

func TestNormalizer_OtherCountryCode(t *testing.T) {
	n := NewNormalizer("49")

	got, err := n.Normalize("3331234567")
	assert.NoError(t, err)
	assert.Equal(t, "+493331234567", got)
}
