package registry

import "github.com/gatewarden/gatewarden/internal/shared"

// Entry describes one protected navigable resource. Entries are declared at
// startup and never change afterwards.
type Entry struct {
	Path        string
	Name        string
	Description string
	MenuGroup   string
	Order       int
	Enabled     bool

	// RequiredRoles and RequiredPermissions are alternative unlock paths:
	// when both are declared, holding either one grants access.
	RequiredRoles       []shared.Role
	RequiredPermissions []string
}

// RequiresRole reports whether the entry declares a role requirement.
func (e Entry) RequiresRole() bool {
	return len(e.RequiredRoles) > 0
}

// RequiresPermission reports whether the entry declares a permission requirement.
func (e Entry) RequiresPermission() bool {
	return len(e.RequiredPermissions) > 0
}

// GroupConfig describes a sidebar menu group. Visibility here is purely a
// presentation concern; it never gates data or route access.
type GroupConfig struct {
	ID        string
	Label     string
	Order     int
	VisibleTo []shared.Role // empty means visible to everyone
}
