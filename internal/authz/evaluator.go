package authz

import (
	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// IsAuthorized decides whether a role plus effective permission set unlocks
// the entry. Role and permission requirements are alternative unlock paths:
// an entry restricted to ADMIN but also granting via "reports" is reachable
// by an ADMIN with no permissions and equally by a USER holding "reports".
// Treating the two as a combined requirement would lock out legitimate
// access-key holders.
func IsAuthorized(role shared.Role, permissions []string, entry registry.Entry) bool {
	if !entry.Enabled {
		return false
	}
	hasRoleReq := entry.RequiresRole()
	hasPermReq := entry.RequiresPermission()
	if !hasRoleReq && !hasPermReq {
		return true
	}
	roleOK := hasRoleReq && roleIn(role, entry.RequiredRoles)
	permOK := hasPermReq && intersects(permissions, entry.RequiredPermissions)
	switch {
	case hasRoleReq && hasPermReq:
		return roleOK || permOK
	case hasRoleReq:
		return roleOK
	default:
		return permOK
	}
}

// AccessibleEntries filters entries by IsAuthorized, then unions in entries
// whose path appears in extraPaths (the direct-grant model). The result is
// deduplicated by path and keeps the registry's declared display order.
func AccessibleEntries(role shared.Role, permissions []string, entries []registry.Entry, extraPaths []string) []registry.Entry {
	extra := make(map[string]struct{}, len(extraPaths))
	for _, p := range extraPaths {
		extra[p] = struct{}{}
	}
	var out []registry.Entry
	for _, entry := range entries {
		if IsAuthorized(role, permissions, entry) {
			out = append(out, entry)
			continue
		}
		if _, ok := extra[entry.Path]; ok && entry.Enabled {
			out = append(out, entry)
		}
	}
	return out
}

// GroupByMenu partitions already-authorized entries by menu group, keeping
// per-group display order. Purely presentational; never a security gate.
func GroupByMenu(entries []registry.Entry) map[string][]registry.Entry {
	grouped := make(map[string][]registry.Entry)
	for _, entry := range entries {
		grouped[entry.MenuGroup] = append(grouped[entry.MenuGroup], entry)
	}
	return grouped
}

// VisibleGroups returns the menu group configs shown to the role, in display
// order. Group visibility only affects sidebar rendering.
func VisibleGroups(groups []registry.GroupConfig, role shared.Role) []registry.GroupConfig {
	var out []registry.GroupConfig
	for _, g := range groups {
		if len(g.VisibleTo) == 0 || roleIn(role, g.VisibleTo) {
			out = append(out, g)
		}
	}
	return out
}

func roleIn(role shared.Role, roles []shared.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func intersects(have, want []string) bool {
	if len(want) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, p := range have {
		set[p] = struct{}{}
	}
	for _, p := range want {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
