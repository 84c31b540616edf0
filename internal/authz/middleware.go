package authz

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// DecisionRecorder counts authorization outcomes for observability.
type DecisionRecorder interface {
	RecordDecision(path string, allowed bool)
}

// Middleware wires authorization helpers for HTTP handlers. Every check
// reads the identity placed in the request context by the identity
// middleware; requests without one are rejected.
type Middleware struct {
	Service  *Service
	Registry *registry.Registry
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// RequireRole ensures the current identity holds one of the given roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if roleIn(id.Role, roles) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAny ensures the current identity holds at least one of the required
// permissions through its redeemed access keys.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), id.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require any", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if intersects(granted, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// Authorize evaluates a single path for the identity: the disjunctive
// role/permission rule plus direct menu-path grants. Unregistered paths are
// denied rather than treated as open.
func (m Middleware) Authorize(ctx context.Context, id shared.Identity, path string) (bool, error) {
	entry, err := m.Registry.ByPath(path)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			m.recordDecision(path, false)
			return false, nil
		}
		return false, err
	}
	set, err := m.Service.Resolve(ctx, id.UserID)
	if err != nil {
		return false, err
	}
	allowed := IsAuthorized(id.Role, set.Permissions, entry)
	if !allowed && entry.Enabled {
		for _, p := range set.MenuPaths {
			if p == entry.Path {
				allowed = true
				break
			}
		}
	}
	m.recordDecision(path, allowed)
	return allowed, nil
}

func (m Middleware) recordDecision(path string, allowed bool) {
	if m.Metrics != nil {
		m.Metrics.RecordDecision(path, allowed)
	}
}

// RequireModule gates a handler behind the registry entry for path, applying
// the full disjunctive rule including direct menu-path grants.
func (m Middleware) RequireModule(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			allowed, err := m.Authorize(r.Context(), id, path)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require module", slog.String("path", path), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
