// Package redis wraps the shared redis client used for best-effort
// credential caching and the gateways' shared rate limiter.
package redis

import (
	gredis "github.com/Laisky/go-redis/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper around the shared redis client. Utils carries the
// key/value helpers used for credential-hash caching; Raw is exposed
// for the rate limiter's INCR/EXPIRE counters, which gredis.Utils does
// not itself provide.
type DB struct {
	Utils *gredis.Utils
	Raw   *redis.Client
}

// NewDB creates a new DB instance.
func NewDB(opt *redis.Options) *DB {
	rdb := redis.NewClient(opt)
	rutils := gredis.NewRedisUtils(rdb)

	return &DB{
		Utils: rutils,
		Raw:   rdb,
	}
}
