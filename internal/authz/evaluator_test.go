package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/shared"
)

func TestIsAuthorizedDisjunction(t *testing.T) {
	entry := registry.Entry{
		Path:                "/reports",
		Enabled:             true,
		RequiredRoles:       []shared.Role{shared.RoleAdmin},
		RequiredPermissions: []string{"reports"},
	}

	// Permission alone unlocks despite the role restriction.
	assert.True(t, IsAuthorized(shared.RoleUser, []string{"reports"}, entry))
	// Role alone unlocks despite holding no permissions.
	assert.True(t, IsAuthorized(shared.RoleAdmin, nil, entry))
	// Neither unlock path satisfied.
	assert.False(t, IsAuthorized(shared.RoleUser, nil, entry))
}

func TestIsAuthorizedRoleOnly(t *testing.T) {
	entry := registry.Entry{
		Path:          "/manager/bi",
		Enabled:       true,
		RequiredRoles: []shared.Role{shared.RoleManager, shared.RoleAdmin},
	}

	assert.True(t, IsAuthorized(shared.RoleManager, nil, entry))
	assert.True(t, IsAuthorized(shared.RoleAdmin, nil, entry))
	assert.False(t, IsAuthorized(shared.RoleUser, []string{"reports"}, entry))
}

func TestIsAuthorizedPermissionOnly(t *testing.T) {
	entry := registry.Entry{
		Path:                "/analytics",
		Enabled:             true,
		RequiredPermissions: []string{"analytics"},
	}

	assert.True(t, IsAuthorized(shared.RoleGuest, []string{"analytics"}, entry))
	assert.False(t, IsAuthorized(shared.RoleAdmin, nil, entry))
}

func TestIsAuthorizedOpenEntry(t *testing.T) {
	entry := registry.Entry{Path: "/dashboard", Enabled: true}
	assert.True(t, IsAuthorized(shared.RoleGuest, nil, entry))
}

func TestIsAuthorizedDisabledEntry(t *testing.T) {
	entry := registry.Entry{Path: "/dashboard", Enabled: false}
	assert.False(t, IsAuthorized(shared.RoleAdmin, nil, entry))
}

func TestAccessibleEntries(t *testing.T) {
	entries := []registry.Entry{
		{Path: "/dashboard", Enabled: true, Order: 10},
		{Path: "/manager/bi", Enabled: true, Order: 20, RequiredRoles: []shared.Role{shared.RoleManager}},
		{Path: "/reports", Enabled: true, Order: 30, RequiredPermissions: []string{"reports"}},
		{Path: "/admin", Enabled: true, Order: 40, RequiredRoles: []shared.Role{shared.RoleAdmin}},
	}

	out := AccessibleEntries(shared.RoleUser, []string{"reports"}, entries, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "/dashboard", out[0].Path)
	assert.Equal(t, "/reports", out[1].Path)
}

func TestAccessibleEntriesUnionsDirectPaths(t *testing.T) {
	entries := []registry.Entry{
		{Path: "/dashboard", Enabled: true, Order: 10},
		{Path: "/manager/bi", Enabled: true, Order: 20, RequiredRoles: []shared.Role{shared.RoleManager}},
		{Path: "/reports", Enabled: true, Order: 30, RequiredPermissions: []string{"reports"}},
	}

	// Direct menu-path grant unlocks /manager/bi for a plain user; the
	// already-authorized /dashboard is not duplicated.
	out := AccessibleEntries(shared.RoleUser, nil, entries, []string{"/manager/bi", "/dashboard"})
	require.Len(t, out, 2)
	assert.Equal(t, "/dashboard", out[0].Path)
	assert.Equal(t, "/manager/bi", out[1].Path)
}

func TestAccessibleEntriesDirectPathNeverRevivesDisabled(t *testing.T) {
	entries := []registry.Entry{
		{Path: "/reports", Enabled: false, Order: 10, RequiredPermissions: []string{"reports"}},
	}
	out := AccessibleEntries(shared.RoleUser, []string{"reports"}, entries, []string{"/reports"})
	assert.Empty(t, out)
}

func TestGroupByMenu(t *testing.T) {
	entries := []registry.Entry{
		{Path: "/a", MenuGroup: "USER", Order: 10},
		{Path: "/b", MenuGroup: "ADMIN", Order: 20},
		{Path: "/c", MenuGroup: "USER", Order: 30},
	}
	grouped := GroupByMenu(entries)
	require.Len(t, grouped, 2)
	assert.Equal(t, "/a", grouped["USER"][0].Path)
	assert.Equal(t, "/c", grouped["USER"][1].Path)
	assert.Equal(t, "/b", grouped["ADMIN"][0].Path)
}

func TestVisibleGroups(t *testing.T) {
	groups := []registry.GroupConfig{
		{ID: "USER", Order: 1},
		{ID: "ADMIN", Order: 2, VisibleTo: []shared.Role{shared.RoleAdmin}},
	}
	visible := VisibleGroups(groups, shared.RoleUser)
	require.Len(t, visible, 1)
	assert.Equal(t, "USER", visible[0].ID)

	visible = VisibleGroups(groups, shared.RoleAdmin)
	assert.Len(t, visible, 2)
}
