package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gatewarden/gatewarden/internal/accesskey"
	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// CatalogSource lists the permission catalog for annotated listings.
type CatalogSource interface {
	ListCatalog(ctx context.Context) ([]accesskey.Permission, error)
}

// Handler exposes the authorization read surface: effective permissions,
// navigable menu and single-path checks.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	registry *registry.Registry
	catalog  CatalogSource
	mw       Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reg *registry.Registry, catalog CatalogSource, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, registry: reg, catalog: catalog, mw: mw}
}

// MountMeRoutes registers the identity-scoped read routes.
func (h *Handler) MountMeRoutes(r chi.Router) {
	r.Get("/permissions", h.myPermissions)
	r.Get("/permissions/catalog", h.permissionCatalog)
	r.Get("/menu", h.myMenu)
}

// MountCheckRoutes registers the route-guard probe.
func (h *Handler) MountCheckRoutes(r chi.Router) {
	r.Get("/check", h.check)
}

type grantsResponse struct {
	Permissions []string `json:"permissions"`
	MenuPaths   []string `json:"menuPaths"`
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	set, err := h.service.Resolve(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grantsResponse{Permissions: set.Permissions, MenuPaths: set.MenuPaths})
}

type catalogItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	HasAccess   bool   `json:"hasAccess"`
}

func (h *Handler) permissionCatalog(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	perms, err := h.catalog.ListCatalog(r.Context())
	if err != nil {
		h.logger.Error("list permission catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	set, err := h.service.Resolve(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]catalogItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, catalogItem{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Description: p.Description,
			HasAccess:   set.Has(p.Name),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": items})
}

type menuEntry struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

type menuGroup struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Order   int         `json:"order"`
	Entries []menuEntry `json:"entries"`
}

func (h *Handler) myMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	set, err := h.service.Resolve(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	accessible := AccessibleEntries(id.Role, set.Permissions, h.registry.All(), set.MenuPaths)
	grouped := GroupByMenu(accessible)
	var groups []menuGroup
	for _, cfg := range VisibleGroups(h.registry.Groups(), id.Role) {
		entries := grouped[cfg.ID]
		if len(entries) == 0 {
			continue
		}
		g := menuGroup{ID: cfg.ID, Label: cfg.Label, Order: cfg.Order, Entries: make([]menuEntry, 0, len(entries))}
		for _, e := range entries {
			g.Entries = append(g.Entries, menuEntry{Path: e.Path, Name: e.Name, Description: e.Description, Order: e.Order})
		}
		groups = append(groups, g)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "path query parameter required")
		return
	}
	allowed, err := h.mw.Authorize(r.Context(), id, path)
	if err != nil {
		h.logger.Error("authorize path", slog.String("path", path), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"path": path, "allowed": allowed})
}
