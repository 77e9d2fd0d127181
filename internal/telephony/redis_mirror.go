package telephony

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces the mirrored families.
const DefaultRedisPrefix = "astdb:"

// RedisMirror stores each family as a Redis hash, e.g. HSET astdb:BUSINESS_HOURS START 09:00.
type RedisMirror struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisMirror{Redis: client, Prefix: prefix}
}

func (m *RedisMirror) Put(ctx context.Context, family, key, value string) error {
	if err := m.Redis.HSet(ctx, m.Prefix+family, key, value).Err(); err != nil {
		return fmt.Errorf("failed to mirror %s/%s to redis: %w", family, key, err)
	}
	return nil
}
