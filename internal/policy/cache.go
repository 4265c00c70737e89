package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// CachedUsers is a cache-aside decorator over a UserSource. Block-list
// lookups happen on every send, so a short TTL keeps the store off the hot
// path while bounding how long a new block can go unnoticed.
type CachedUsers struct {
	inner  UserSource
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCachedUsers(inner UserSource, client *redis.Client, ttl time.Duration) *CachedUsers {
	return &CachedUsers{
		inner:  inner,
		client: client,
		prefix: "user:",
		ttl:    ttl,
	}
}

func (c *CachedUsers) GetUser(ctx context.Context, id string) (*domain.User, error) {
	key := c.prefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var u domain.User
		if jerr := json.Unmarshal(data, &u); jerr == nil {
			return &u, nil
		}
		// corrupt entry, fall through to the store
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		slog.Warn("user cache get failed", "user", id, "err", err)
	}

	u, err := c.inner.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(u); jerr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			slog.Warn("user cache set failed", "user", id, "err", serr)
		}
	}
	return u, nil
}

// Invalidate drops a cached user, for callers that learn of a block-list
// change out of band.
func (c *CachedUsers) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
