package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"long local part", "john.doe@example.com", "j***e@example.com"},
		{"two char local part", "ab@example.com", "a*b@example.com"},
		{"one char local part", "a@example.com", "*@example.com"},
		{"empty local part", "@example.com", "@example.com"},
		{"not an email", "not-an-email", "not-an-email"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.email))
		})
	}
}
