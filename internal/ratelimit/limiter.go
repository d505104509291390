// Package ratelimit implements SPEC_FULL.md's C9: per-credential
// request throttling, shared by the request/response and event channel
// gateways.
//
// The teacher's own library/throttle package wraps
// github.com/Laisky/go-utils's in-process Throttle type, which is
// correct for a single-process alert-fanout limiter but not for a
// rate limit that must hold across however many instances of this
// server share one Postgres/Redis pair — so this is grounded instead
// on the plain INCR+EXPIRE fixed-window counter idiom, built directly
// on the redis client library/db/redis already wraps for credential
// caching.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	errors "github.com/Laisky/errors/v2"

	redislib "github.com/Laisky/syncd/library/db/redis"
)

// Limiter enforces a fixed per-minute request budget per credential.
type Limiter struct {
	redis             *redislib.DB
	requestsPerMinute int
}

// New constructs a Limiter. A non-positive requestsPerMinute disables
// limiting entirely (Allow always returns true).
func New(redis *redislib.DB, requestsPerMinute int) *Limiter {
	return &Limiter{redis: redis, requestsPerMinute: requestsPerMinute}
}

// Allow reports whether credentialID may proceed, incrementing its
// current-minute counter as a side effect. Redis unavailability fails
// open (the request is allowed) so a cache outage never blocks
// legitimate traffic; the error is returned for logging only.
func (l *Limiter) Allow(ctx context.Context, credentialID string) (bool, error) {
	if l == nil || l.redis == nil || l.requestsPerMinute <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("syncd/ratelimit/%s/%d", credentialID, time.Now().UTC().Unix()/60)
	count, err := l.redis.Raw.Incr(ctx, key).Result()
	if err != nil {
		return true, errors.Wrap(err, "increment rate limit counter")
	}
	if count == 1 {
		l.redis.Raw.Expire(ctx, key, 90*time.Second)
	}

	return count <= int64(l.requestsPerMinute), nil
}
