package blocklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "shipyard:blocklist:"

// Redis is a Blocklist shared by every console replica. Expiry is delegated
// to Redis key TTLs.
type Redis struct {
	rdb redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) key(token string) string {
	return redisKeyPrefix + Digest(token)
}

func (r *Redis) Put(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.key(token), 1, effectiveTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("blocklist put: %w", err)
	}
	return nil
}

func (r *Redis) IsBlocked(ctx context.Context, token string) (bool, error) {
	err := r.rdb.Get(ctx, r.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blocklist lookup: %w", err)
	}
	return true, nil
}

func (r *Redis) Remove(ctx context.Context, token string) error {
	if err := r.rdb.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("blocklist remove: %w", err)
	}
	return nil
}

// Len scans the blocklist keyspace.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("blocklist scan: %w", err)
	}
	return n, nil
}
