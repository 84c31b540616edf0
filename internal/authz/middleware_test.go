package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/accesskey"
	"github.com/gatewarden/gatewarden/internal/registry"
	"github.com/gatewarden/gatewarden/internal/shared"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{Path: "/dashboard", Name: "Dashboard", MenuGroup: "user", Order: 1, Enabled: true},
		{Path: "/reports", Name: "Reports", MenuGroup: "user", Order: 2, Enabled: true, RequiredPermissions: []string{"reports"}},
		{Path: "/manager/bi", Name: "Business Intelligence", MenuGroup: "manager", Order: 3, Enabled: true, RequiredRoles: []shared.Role{shared.RoleManager, shared.RoleAdmin}},
		{Path: "/legacy", Name: "Legacy", MenuGroup: "user", Order: 4, Enabled: false},
	}, []registry.GroupConfig{
		{ID: "user", Label: "Workspace", Order: 1},
		{ID: "manager", Label: "Management", Order: 2, VisibleTo: []shared.Role{shared.RoleManager, shared.RoleAdmin}},
	})
	require.NoError(t, err)
	return reg
}

func grantsFor(userID uuid.UUID, perms, paths []string) *stubGrantSource {
	key := activeKey(perms, paths, time.Now().Add(time.Hour))
	return &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, key)},
	}}
}

type recordedDecision struct {
	path    string
	allowed bool
}

type stubRecorder struct {
	decisions []recordedDecision
}

func (s *stubRecorder) RecordDecision(path string, allowed bool) {
	s.decisions = append(s.decisions, recordedDecision{path: path, allowed: allowed})
}

func TestAuthorizeDeniesUnregisteredPath(t *testing.T) {
	userID := uuid.New()
	rec := &stubRecorder{}
	mw := Middleware{
		Service:  NewService(grantsFor(userID, nil, nil), nil, nil),
		Registry: testRegistry(t),
		Metrics:  rec,
	}

	allowed, err := mw.Authorize(context.Background(), shared.Identity{UserID: userID, Role: shared.RoleAdmin}, "/not-registered")
	require.NoError(t, err)
	assert.False(t, allowed)
	require.Len(t, rec.decisions, 1)
	assert.Equal(t, recordedDecision{path: "/not-registered", allowed: false}, rec.decisions[0])
}

func TestAuthorizePermissionGrant(t *testing.T) {
	userID := uuid.New()
	mw := Middleware{
		Service:  NewService(grantsFor(userID, []string{"reports"}, nil), nil, nil),
		Registry: testRegistry(t),
	}
	id := shared.Identity{UserID: userID, Role: shared.RoleUser}

	allowed, err := mw.Authorize(context.Background(), id, "/reports")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = mw.Authorize(context.Background(), id, "/manager/bi")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizeDirectMenuPathGrant(t *testing.T) {
	userID := uuid.New()
	mw := Middleware{
		Service:  NewService(grantsFor(userID, nil, []string{"/manager/bi", "/legacy"}), nil, nil),
		Registry: testRegistry(t),
	}
	id := shared.Identity{UserID: userID, Role: shared.RoleUser}

	// A direct path grant opens a role-gated module for a plain user.
	allowed, err := mw.Authorize(context.Background(), id, "/manager/bi")
	require.NoError(t, err)
	assert.True(t, allowed)

	// But never a disabled one.
	allowed, err = mw.Authorize(context.Background(), id, "/legacy")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(id *shared.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), *id))
	}
	return req
}

func TestRequireRole(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequireRole(shared.RoleAdmin)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: uuid.New(), Role: shared.RoleUser}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: uuid.New(), Role: shared.RoleAdmin}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAny(t *testing.T) {
	userID := uuid.New()
	mw := Middleware{Service: NewService(grantsFor(userID, []string{"analytics"}, nil), nil, nil)}

	handler := mw.RequireAny("reports", "analytics")(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: userID, Role: shared.RoleUser}))
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = mw.RequireAny("reports")(okHandler())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: userID, Role: shared.RoleUser}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireModule(t *testing.T) {
	userID := uuid.New()
	mw := Middleware{
		Service:  NewService(grantsFor(userID, []string{"reports"}, nil), nil, nil),
		Registry: testRegistry(t),
	}

	handler := mw.RequireModule("/reports")(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: userID, Role: shared.RoleUser}))
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = mw.RequireModule("/manager/bi")(okHandler())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(&shared.Identity{UserID: userID, Role: shared.RoleUser}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
