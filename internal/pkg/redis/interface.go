package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Cache is the subset of redis used by the bloom prefilter and rule sync.
type Cache interface {
	Exists(ctx context.Context, key string) (bool, error)

	ScriptRun(ctx context.Context, script *redis.Script, keys []string,
		args ...any) (any, error)

	Del(ctx context.Context, keys ...string) (int64, error)

	Publish(ctx context.Context, channel string, message string) error

	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}
