package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gua:bl:"

// extendScript sets the key unless it already outlives the requested TTL, in one round trip
// so concurrent invalidations of the same token keep the longer expiry.
var extendScript = redis.NewScript(`
local ttl = tonumber(ARGV[1])
if redis.call("PTTL", KEYS[1]) >= ttl then
	return 0
end
redis.call("SET", KEYS[1], "1", "PX", ttl)
return 1
`)

// Redis is a Store shared by every instance connected to the same Redis server.
// Expiry is delegated to key TTLs.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed Store. An empty prefix selects the default key prefix.
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &Redis{rdb: rdb, prefix: prefix}
}

// Add implements Store.
func (r *Redis) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := r.prefix + Key(token)

	ms := max(ttl.Milliseconds(), 1)

	if err := extendScript.Run(ctx, r.rdb, []string{key}, ms).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return nil
}

// Contains implements Store.
func (r *Redis) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+Key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return n > 0, nil
}
