// Package authz computes effective permissions from redeemed access keys and
// evaluates module access for a role plus permission set.
package authz

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/accesskey"
)

// GrantSource reads a user's redemptions with their keys embedded. The
// access key repository satisfies this.
type GrantSource interface {
	ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]accesskey.Redemption, error)
}

// GrantSet is the computed, always-fresh union of grants contributed by a
// user's currently valid redemptions. It is never persisted.
type GrantSet struct {
	Permissions []string `json:"permissions"`
	MenuPaths   []string `json:"menu_paths"`
}

// Has reports whether the set contains the permission.
func (g GrantSet) Has(permission string) bool {
	for _, p := range g.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Service resolves effective permissions. Results may be cached for a short,
// bounded interval; the cache is invalidated on every lifecycle mutation so
// deactivation and revocation are observable on the next read.
type Service struct {
	grants GrantSource
	cache  *Cache
	logger *slog.Logger

	now func() time.Time
}

// NewService constructs a Service. The cache may be nil, in which case every
// read evaluates the grant store directly.
func NewService(grants GrantSource, cache *Cache, logger *slog.Logger) *Service {
	return &Service{grants: grants, cache: cache, logger: logger, now: time.Now}
}

// Resolve computes the user's effective grant set. Store failures propagate;
// they are never defaulted to an empty set.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) (GrantSet, error) {
	if s.cache != nil {
		if set, ok := s.cache.Get(ctx, userID); ok {
			return set, nil
		}
	}
	set, err := s.resolveFresh(ctx, userID)
	if err != nil {
		return GrantSet{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, set)
	}
	return set, nil
}

func (s *Service) resolveFresh(ctx context.Context, userID uuid.UUID) (GrantSet, error) {
	redemptions, err := s.grants.ListRedemptionsByUser(ctx, userID)
	if err != nil {
		return GrantSet{}, err
	}
	now := s.now()
	permSet := make(map[string]struct{})
	pathSet := make(map[string]struct{})
	for _, red := range redemptions {
		if !red.Key.GrantsTo(userID, now) {
			continue
		}
		for _, p := range red.Key.Permissions {
			permSet[p] = struct{}{}
		}
		for _, p := range red.Key.MenuPaths {
			pathSet[p] = struct{}{}
		}
	}
	return GrantSet{Permissions: sortedKeys(permSet), MenuPaths: sortedKeys(pathSet)}, nil
}

// EffectivePermissions returns the user's deduplicated permission names.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	set, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.Permissions, nil
}

// HasPermission reports whether any currently valid redemption grants the
// permission. Short-circuits on the first contributing redemption when no
// cache is configured.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	if s.cache != nil {
		set, err := s.Resolve(ctx, userID)
		if err != nil {
			return false, err
		}
		return set.Has(permission), nil
	}
	redemptions, err := s.grants.ListRedemptionsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	now := s.now()
	for _, red := range redemptions {
		if !red.Key.GrantsTo(userID, now) {
			continue
		}
		for _, p := range red.Key.Permissions {
			if p == permission {
				return true, nil
			}
		}
	}
	return false, nil
}

// InvalidateUsers drops cached grant sets. Satisfies
// accesskey.GrantInvalidator.
func (s *Service) InvalidateUsers(ctx context.Context, userIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateUsers(ctx, userIDs...)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
