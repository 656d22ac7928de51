package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one counter between several assistant processes.
// Check and increment still happen in each process, so concurrent sessions
// on different instances can overshoot the limit.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, password string, db int, prefix string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		key: prefix + UsageKey,
	}
}

func (r *RedisStore) Load(ctx context.Context) (int, error) {
	value, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", r.key, err)
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w", r.key, value, err)
	}
	return n, nil
}

func (r *RedisStore) Save(ctx context.Context, used int) error {
	if err := r.client.Set(ctx, r.key, used, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
