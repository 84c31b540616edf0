package authz

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/accesskey"
	"github.com/gatewarden/gatewarden/internal/shared"
	_ "github.com/gatewarden/gatewarden/testing"
)

type stubCatalog struct{}

func (stubCatalog) ListCatalog(ctx context.Context) ([]accesskey.Permission, error) {
	return []accesskey.Permission{
		{Name: "reports", DisplayName: "Reports", Description: "Reporting dashboards"},
		{Name: "analytics", DisplayName: "Analytics"},
	}, nil
}

func newHandlerServer(t *testing.T, source GrantSource, identity shared.Identity) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := testRegistry(t)
	svc := NewService(source, nil, logger)
	mw := Middleware{Service: svc, Registry: reg, Logger: logger}
	h := NewHandler(logger, svc, reg, stubCatalog{}, mw)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithIdentity(req.Context(), identity)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/me", h.MountMeRoutes)
	r.Route("/authz", h.MountCheckRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestMyPermissionsEndpoint(t *testing.T) {
	userID := uuid.New()
	srv := newHandlerServer(t, grantsFor(userID, []string{"reports"}, []string{"/manager/bi"}),
		shared.Identity{UserID: userID, Role: shared.RoleUser})

	var body grantsResponse
	code := getJSON(t, srv.URL+"/me/permissions", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"reports"}, body.Permissions)
	assert.Equal(t, []string{"/manager/bi"}, body.MenuPaths)
}

func TestPermissionCatalogAnnotatesAccess(t *testing.T) {
	userID := uuid.New()
	srv := newHandlerServer(t, grantsFor(userID, []string{"reports"}, nil),
		shared.Identity{UserID: userID, Role: shared.RoleUser})

	var body struct {
		Permissions []catalogItem `json:"permissions"`
	}
	code := getJSON(t, srv.URL+"/me/permissions/catalog", &body)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Permissions, 2)
	assert.True(t, body.Permissions[0].HasAccess)
	assert.False(t, body.Permissions[1].HasAccess)
}

func TestMyMenuGroupsEntries(t *testing.T) {
	userID := uuid.New()
	srv := newHandlerServer(t, grantsFor(userID, []string{"reports"}, nil),
		shared.Identity{UserID: userID, Role: shared.RoleUser})

	var body struct {
		Groups []menuGroup `json:"groups"`
	}
	code := getJSON(t, srv.URL+"/me/menu", &body)
	require.Equal(t, http.StatusOK, code)
	// The manager group is hidden for a plain user; the workspace group
	// carries the open dashboard plus the permission-unlocked reports page.
	require.Len(t, body.Groups, 1)
	assert.Equal(t, "user", body.Groups[0].ID)
	paths := make([]string, 0, len(body.Groups[0].Entries))
	for _, e := range body.Groups[0].Entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/dashboard", "/reports"}, paths)
}

func TestCheckEndpoint(t *testing.T) {
	userID := uuid.New()
	srv := newHandlerServer(t, grantsFor(userID, []string{"reports"}, nil),
		shared.Identity{UserID: userID, Role: shared.RoleUser})

	var body struct {
		Path    string `json:"path"`
		Allowed bool   `json:"allowed"`
	}
	code := getJSON(t, srv.URL+"/authz/check?path=/reports", &body)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Allowed)

	code = getJSON(t, srv.URL+"/authz/check?path=/manager/bi", &body)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, body.Allowed)

	code = getJSON(t, srv.URL+"/authz/check", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
