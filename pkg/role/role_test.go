package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, valid := range []string{"owner", "admin", "student", "unassigned"} {
		r, err := Parse(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), r)
	}

	_, err := Parse("superuser")
	assert.Error(t, err)
}

func TestRedirectPath(t *testing.T) {
	tests := []struct {
		role Role
		path string
	}{
		{RoleOwner, "/owner/dashboard"},
		{RoleAdmin, "/admin"},
		{RoleStudent, "/home"},
		{RoleUnassigned, "/onboarding"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.path, tc.role.RedirectPath())
	}
}

func TestRedirectPathUnknownRole(t *testing.T) {
	// Unknown values land on onboarding rather than a privileged page.
	assert.Equal(t, "/onboarding", Role("mystery").RedirectPath())
}

func TestDefault(t *testing.T) {
	assert.Equal(t, RoleStudent, Default)
	assert.True(t, Default.Valid())
}
