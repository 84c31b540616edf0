package authz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const grantCachePrefix = "authz:grants:"

// Cache keeps resolved grant sets in Redis for a short, bounded interval.
// The TTL must stay well below the expiry-check granularity, and lifecycle
// mutations invalidate entries explicitly, so a cached set never outlives
// the grants it was computed from by more than the TTL. Cache failures are
// treated as misses; correctness never depends on Redis being up.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get loads a cached grant set, reporting whether one was present.
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (GrantSet, bool) {
	if c == nil || c.client == nil {
		return GrantSet{}, false
	}
	payload, err := c.client.Get(ctx, grantCachePrefix+userID.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("grant cache read", slog.Any("error", err))
		}
		return GrantSet{}, false
	}
	var set GrantSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return GrantSet{}, false
	}
	return set, true
}

// Set stores a grant set under the configured TTL.
func (c *Cache) Set(ctx context.Context, userID uuid.UUID, set GrantSet) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, grantCachePrefix+userID.String(), payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("grant cache write", slog.Any("error", err))
	}
}

// InvalidateUsers drops the cached sets for the given users.
func (c *Cache) InvalidateUsers(ctx context.Context, userIDs ...uuid.UUID) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = grantCachePrefix + id.String()
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && c.logger != nil {
		c.logger.Warn("grant cache invalidate", slog.Any("error", err))
	}
}
