package registry

import "github.com/gatewarden/gatewarden/internal/shared"

// Menu group identifiers.
const (
	GroupUser       = "USER"
	GroupManager    = "MANAGER"
	GroupBackoffice = "BACKOFFICE"
	GroupAdmin      = "ADMIN"
)

// Default returns the registry shipped with the application.
func Default() (*Registry, error) {
	groups := []GroupConfig{
		{ID: GroupUser, Label: "User", Order: 1},
		{ID: GroupManager, Label: "Manager", Order: 2, VisibleTo: []shared.Role{shared.RoleManager, shared.RoleAdmin}},
		{ID: GroupBackoffice, Label: "Backoffice", Order: 3},
		{ID: GroupAdmin, Label: "Admin", Order: 4, VisibleTo: []shared.Role{shared.RoleAdmin}},
	}
	entries := []Entry{
		{Path: "/dashboard", Name: "Dashboard", MenuGroup: GroupUser, Order: 10, Enabled: true},
		{Path: "/profile", Name: "Profile", MenuGroup: GroupUser, Order: 20, Enabled: true},
		{Path: "/access-keys", Name: "Access Keys", MenuGroup: GroupUser, Order: 30, Enabled: true},
		{Path: "/settings", Name: "Settings", MenuGroup: GroupUser, Order: 40, Enabled: true},
		{
			Path: "/manager/bi", Name: "Business Intelligence", MenuGroup: GroupManager, Order: 50, Enabled: true,
			RequiredRoles: []shared.Role{shared.RoleManager, shared.RoleAdmin},
		},
		{
			Path: "/manager/hr-evaluation", Name: "HR Evaluation", MenuGroup: GroupManager, Order: 60, Enabled: true,
			RequiredRoles: []shared.Role{shared.RoleManager, shared.RoleAdmin},
		},
		{Path: "/backoffice/business-trip", Name: "Business Trip", MenuGroup: GroupBackoffice, Order: 70, Enabled: true},
		{Path: "/backoffice/expense-claim", Name: "Expense Claim", MenuGroup: GroupBackoffice, Order: 80, Enabled: true},
		{
			Path: "/reports", Name: "Reports", MenuGroup: GroupBackoffice, Order: 90, Enabled: true,
			RequiredPermissions: []string{shared.PermReports},
		},
		{
			Path: "/analytics", Name: "Analytics", MenuGroup: GroupBackoffice, Order: 100, Enabled: true,
			RequiredPermissions: []string{shared.PermAnalytics},
		},
		{
			Path: "/admin", Name: "Admin", MenuGroup: GroupAdmin, Order: 110, Enabled: true,
			RequiredRoles: []shared.Role{shared.RoleAdmin},
		},
		{
			Path: "/admin/users", Name: "User Management", MenuGroup: GroupAdmin, Order: 120, Enabled: true,
			RequiredRoles: []shared.Role{shared.RoleAdmin},
		},
		{
			Path: "/admin/access-keys", Name: "Access Key Management", MenuGroup: GroupAdmin, Order: 130, Enabled: true,
			RequiredRoles: []shared.Role{shared.RoleAdmin},
		},
	}
	return New(entries, groups)
}
