package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/accesskey"
)

type stubGrantSource struct {
	redemptions map[uuid.UUID][]accesskey.Redemption
	err         error
	calls       int
}

func (s *stubGrantSource) ListRedemptionsByUser(ctx context.Context, userID uuid.UUID) ([]accesskey.Redemption, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.redemptions[userID], nil
}

func redemptionWith(userID uuid.UUID, key accesskey.AccessKey) accesskey.Redemption {
	return accesskey.Redemption{
		ID:          uuid.New(),
		UserID:      userID,
		AccessKeyID: key.ID,
		ActivatedAt: time.Now(),
		Key:         key,
	}
}

func activeKey(perms []string, paths []string, expiresAt time.Time) accesskey.AccessKey {
	return accesskey.AccessKey{
		ID:          uuid.New(),
		Name:        "test key",
		IsActive:    true,
		ExpiresAt:   expiresAt,
		Permissions: perms,
		MenuPaths:   paths,
	}
}

func TestEffectivePermissionsUnionsValidKeys(t *testing.T) {
	userID := uuid.New()
	future := time.Now().Add(time.Hour)
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {
			redemptionWith(userID, activeKey([]string{"reports", "analytics"}, nil, future)),
			redemptionWith(userID, activeKey([]string{"reports"}, []string{"/manager/bi"}, future)),
		},
	}}
	svc := NewService(source, nil, nil)

	set, err := svc.Resolve(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics", "reports"}, set.Permissions)
	assert.Equal(t, []string{"/manager/bi"}, set.MenuPaths)
}

func TestExpiryIsMonotonicAtReadTime(t *testing.T) {
	userID := uuid.New()
	key := activeKey([]string{"reports"}, nil, time.Now().Add(time.Minute))
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, key)},
	}}
	svc := NewService(source, nil, nil)

	perms, err := svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports"}, perms)

	// Move the clock past expiry: the grant vanishes without any stored
	// state change and never comes back.
	svc.now = func() time.Time { return key.ExpiresAt.Add(time.Second) }
	perms, err = svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	svc.now = func() time.Time { return key.ExpiresAt.Add(24 * time.Hour) }
	perms, err = svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestDeactivatedKeyContributesNothing(t *testing.T) {
	userID := uuid.New()
	key := activeKey([]string{"reports"}, nil, time.Now().Add(time.Hour))
	key.IsActive = false
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, key)},
	}}
	svc := NewService(source, nil, nil)

	perms, err := svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestTargetedKeyOnlyGrantsTarget(t *testing.T) {
	target := uuid.New()
	other := uuid.New()
	key := activeKey([]string{"reports"}, nil, time.Now().Add(time.Hour))
	key.TargetUserID = &target
	// The other user somehow holds a redemption row for the targeted key;
	// read-time enforcement still refuses to contribute.
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		target: {redemptionWith(target, key)},
		other:  {redemptionWith(other, key)},
	}}
	svc := NewService(source, nil, nil)

	perms, err := svc.EffectivePermissions(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports"}, perms)

	perms, err = svc.EffectivePermissions(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestHasPermissionShortCircuits(t *testing.T) {
	userID := uuid.New()
	future := time.Now().Add(time.Hour)
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, activeKey([]string{"reports"}, nil, future))},
	}}
	svc := NewService(source, nil, nil)

	ok, err := svc.HasPermission(context.Background(), userID, "reports")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(context.Background(), userID, "analytics")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreFailurePropagates(t *testing.T) {
	source := &stubGrantSource{err: errors.New("store unavailable")}
	svc := NewService(source, nil, nil)

	_, err := svc.EffectivePermissions(context.Background(), uuid.New())
	require.Error(t, err)
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, ttl, nil)
}

func TestCacheServesRepeatReads(t *testing.T) {
	userID := uuid.New()
	future := time.Now().Add(time.Hour)
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, activeKey([]string{"reports"}, nil, future))},
	}}
	svc := NewService(source, newTestCache(t, time.Minute), nil)

	for i := 0; i < 3; i++ {
		perms, err := svc.EffectivePermissions(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"reports"}, perms)
	}
	assert.Equal(t, 1, source.calls)
}

func TestInvalidateForcesFreshRead(t *testing.T) {
	userID := uuid.New()
	key := activeKey([]string{"reports"}, nil, time.Now().Add(time.Hour))
	source := &stubGrantSource{redemptions: map[uuid.UUID][]accesskey.Redemption{
		userID: {redemptionWith(userID, key)},
	}}
	svc := NewService(source, newTestCache(t, time.Minute), nil)

	perms, err := svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports"}, perms)

	// Deactivate and invalidate: the very next read observes the change.
	key.IsActive = false
	source.redemptions[userID] = []accesskey.Redemption{redemptionWith(userID, key)}
	svc.InvalidateUsers(context.Background(), userID)

	perms, err = svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	// Reactivation restores the grant the same way.
	key.IsActive = true
	source.redemptions[userID] = []accesskey.Redemption{redemptionWith(userID, key)}
	svc.InvalidateUsers(context.Background(), userID)

	perms, err = svc.EffectivePermissions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports"}, perms)
}
