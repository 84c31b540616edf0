package shared

import (
	"fmt"
	"strings"
)

// Role is the coarse authorization tier assigned to a user by an
// administrator. A user holds exactly one role.
type Role string

const (
	RoleGuest      Role = "GUEST"
	RoleUser       Role = "USER"
	RoleManager    Role = "MANAGER"
	RoleBackoffice Role = "BACKOFFICE"
	RoleAdmin      Role = "ADMIN"
)

// AllRoles lists every assignable role.
func AllRoles() []Role {
	return []Role{RoleGuest, RoleUser, RoleManager, RoleBackoffice, RoleAdmin}
}

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range AllRoles() {
		if candidate == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("shared: unknown role %q", raw)
}

// IsAdmin reports whether the role grants administrative access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
