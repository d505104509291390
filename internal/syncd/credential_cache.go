package syncd

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/syncd/library/log"
	redislib "github.com/Laisky/syncd/library/db/redis"
)

const credentialCacheTTL = 5 * time.Minute

// CachedCredentialStore decorates a CredentialStore with a best-effort
// Redis cache of hash -> credential, grounded on
// internal/mcp/files/credential_store.go's RedisCredentialStore. Cache
// errors never fail the lookup; they just mean a database round-trip.
type CachedCredentialStore struct {
	inner CredentialStore
	redis *redislib.DB
}

// NewCachedCredentialStore wraps inner with an optional redis cache;
// redis may be nil, in which case this is a pass-through.
func NewCachedCredentialStore(inner CredentialStore, redis *redislib.DB) *CachedCredentialStore {
	return &CachedCredentialStore{inner: inner, redis: redis}
}

func (c *CachedCredentialStore) cacheKey(hash string) string {
	return "syncd/credential/" + hash
}

// FindCredentialByHash checks the cache before falling through to the
// backing store, and populates the cache on a store hit.
func (c *CachedCredentialStore) FindCredentialByHash(ctx context.Context, hash string) (*Credential, error) {
	if c.redis != nil {
		if payload, err := c.redis.Utils.GetItem(ctx, c.cacheKey(hash)); err == nil && payload != "" {
			var cred Credential
			if jerr := json.Unmarshal([]byte(payload), &cred); jerr == nil {
				return &cred, nil
			}
		}
	}

	cred, err := c.inner.FindCredentialByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if payload, jerr := json.Marshal(cred); jerr == nil {
			if serr := c.redis.Utils.SetItem(ctx, c.cacheKey(hash), string(payload), credentialCacheTTL); serr != nil {
				log.Logger.Warn("cache credential failed", zap.Error(errors.WithStack(serr)))
			}
		}
	}

	return cred, nil
}

// TouchCredentialLastUsed delegates straight to the backing store;
// this field changes too often to be worth caching.
func (c *CachedCredentialStore) TouchCredentialLastUsed(ctx context.Context, credentialID string) {
	c.inner.TouchCredentialLastUsed(ctx, credentialID)
}
