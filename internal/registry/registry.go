// Package registry holds the declarative catalog of protected resources.
// The catalog is built once at process start and is immutable afterwards,
// which makes it safe to share across requests without locking.
package registry

import (
	"fmt"
	"sort"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// Registry is the immutable module catalog.
type Registry struct {
	entries []Entry
	byPath  map[string]Entry
	groups  []GroupConfig
	byGroup map[string]GroupConfig
}

// New builds a Registry from the given entries and group configs. Duplicate
// paths or group ids are a programming error and rejected outright.
func New(entries []Entry, groups []GroupConfig) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, len(entries)),
		byPath:  make(map[string]Entry, len(entries)),
		groups:  make([]GroupConfig, len(groups)),
		byGroup: make(map[string]GroupConfig, len(groups)),
	}
	copy(r.entries, entries)
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Order < r.entries[j].Order
	})
	for _, e := range r.entries {
		if e.Path == "" {
			return nil, fmt.Errorf("registry: entry %q has no path", e.Name)
		}
		if _, exists := r.byPath[e.Path]; exists {
			return nil, fmt.Errorf("registry: duplicate path %q", e.Path)
		}
		r.byPath[e.Path] = e
	}
	copy(r.groups, groups)
	sort.SliceStable(r.groups, func(i, j int) bool {
		return r.groups[i].Order < r.groups[j].Order
	})
	for _, g := range r.groups {
		if _, exists := r.byGroup[g.ID]; exists {
			return nil, fmt.Errorf("registry: duplicate menu group %q", g.ID)
		}
		r.byGroup[g.ID] = g
	}
	return r, nil
}

// All returns every entry in display order.
func (r *Registry) All() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByPath fetches the entry registered under path.
func (r *Registry) ByPath(path string) (Entry, error) {
	e, ok := r.byPath[path]
	if !ok {
		return Entry{}, fmt.Errorf("registry: path %q: %w", path, shared.ErrNotFound)
	}
	return e, nil
}

// ByGroup returns the entries of one menu group in display order.
func (r *Registry) ByGroup(groupID string) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.MenuGroup == groupID {
			out = append(out, e)
		}
	}
	return out
}

// Groups returns the menu group configs in display order.
func (r *Registry) Groups() []GroupConfig {
	out := make([]GroupConfig, len(r.groups))
	copy(out, r.groups)
	return out
}

// GroupConfigByID fetches one menu group config.
func (r *Registry) GroupConfigByID(id string) (GroupConfig, bool) {
	g, ok := r.byGroup[id]
	return g, ok
}

// Paths returns the set of registered paths. Used by the lifecycle service to
// validate direct menu-path grants against the catalog.
func (r *Registry) Paths() map[string]struct{} {
	out := make(map[string]struct{}, len(r.byPath))
	for p := range r.byPath {
		out[p] = struct{}{}
	}
	return out
}
