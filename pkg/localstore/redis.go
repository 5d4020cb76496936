package localstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the cache in a Redis database so several pickers on one
// workstation, or a restarted container, share it.
type Redis struct {
	cli    *redis.Client
	prefix string
}

// NewRedis wraps an existing client. Keys are stored as prefix+key.
func NewRedis(cli *redis.Client, prefix string) *Redis {
	return &Redis{cli: cli, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.cli.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.cli.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.cli.Del(ctx, r.prefix+key).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.cli.Close() }
