package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metyhq/mety-api/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext represents a resolved API key identity stored in Redis.
// Entries are keyed by the stored key hash: the guard only reaches the cache
// after hashing the presented key, so a hit implies the key verified, and
// revocation can invalidate by hash without knowing the plaintext.
type CachedAuthContext struct {
	KeyID  int64    `json:"key_id"`
	UserID int64    `json:"user_id"`
	Label  string   `json:"label"`
	Scopes []string `json:"scopes"`
}

// GetAuthContext retrieves a cached auth context by key hash.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, keyHash string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+keyHash).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		KeyID:  cached.KeyID,
		UserID: cached.UserID,
		Label:  cached.Label,
		Scopes: cached.Scopes,
	}, nil
}

// SetAuthContext caches a resolved auth context under the key hash.
func (c *Cache) SetAuthContext(ctx context.Context, keyHash string, auth *model.AuthContext) error {
	cached := CachedAuthContext{
		KeyID:  auth.KeyID,
		UserID: auth.UserID,
		Label:  auth.Label,
		Scopes: auth.Scopes,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authCachePrefix+keyHash, data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context by key hash.
// Called when a key is revoked or its label/scopes change, so the guard
// never honors stale identity.
func (c *Cache) DeleteAuthContext(ctx context.Context, keyHash string) error {
	return c.client.Del(ctx, authCachePrefix+keyHash).Err()
}
