// Package role models the closed set of marketplace roles. Roles are a sum
// type with exhaustive matching: a new role fails Parse and every switch
// rather than silently falling through a string comparison.
package role

import "fmt"

// Role is one of the marketplace's account roles.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
	RoleUnassigned Role = "unassigned"
)

// Default is the role assigned on signup confirmation when the user has no
// role yet.
const Default = RoleStudent

// Parse validates a role string from storage or an external caller.
func Parse(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleStudent, RoleUnassigned:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	_, err := Parse(string(r))
	return err == nil
}

// RedirectPath returns the landing route a user of this role is sent to
// after device approval or signup confirmation.
func (r Role) RedirectPath() string {
	switch r {
	case RoleOwner:
		return "/owner/dashboard"
	case RoleAdmin:
		return "/admin"
	case RoleStudent:
		return "/home"
	case RoleUnassigned:
		return "/onboarding"
	}
	return "/onboarding"
}
