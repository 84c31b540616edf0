package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatewarden/gatewarden/internal/accesskey"
	"github.com/gatewarden/gatewarden/internal/authz"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/shared"
	"github.com/gatewarden/gatewarden/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthzHandler     *authz.Handler
	AuthzMiddleware  authz.Middleware
	AccessKeyHandler *accesskey.Handler
	UsersHandler     *users.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(RequireIdentity)
		params.AuthzHandler.MountMeRoutes(r)
		r.Route("/access-keys", params.AccessKeyHandler.MountUserRoutes)
	})

	r.Route("/authz", func(r chi.Router) {
		r.Use(RequireIdentity)
		params.AuthzHandler.MountCheckRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Use(params.AuthzMiddleware.RequireRole(shared.RoleAdmin))
		r.Route("/access-keys", params.AccessKeyHandler.MountAdminRoutes)
		r.Route("/users", params.UsersHandler.MountAdminRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
