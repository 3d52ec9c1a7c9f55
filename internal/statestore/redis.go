package statestore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the multi-process Store. Every worker handling the same
// operation category reads and writes the same keys; consistency is
// eventual (last write wins) and entries expire server-side via TTL.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

func NewRedis(opts RedisOptions) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		keyPrefix: opts.KeyPrefix,
	}
}

// Ping verifies connectivity. Called once at startup so a misconfigured
// store fails fast instead of on the first breaker write.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
