package sessionbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores bridge records in a redis hash per visitor session
// so records survive process restarts and redirect round-trips across nodes.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a RedisRepository. ttl bounds how long an
// abandoned session's records linger; zero means no expiry.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRepository) hashKey(sid string) string {
	return "bridge:" + sid
}

func (r *RedisRepository) Get(ctx context.Context, sid, key string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, r.hashKey(sid), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read bridge record %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisRepository) Set(ctx context.Context, sid, key string, value []byte) error {
	hk := r.hashKey(sid)
	if err := r.client.HSet(ctx, hk, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write bridge record %s: %w", key, err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, hk, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to refresh bridge ttl: %w", err)
		}
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, sid, key string) error {
	if err := r.client.HDel(ctx, r.hashKey(sid), key).Err(); err != nil {
		return fmt.Errorf("failed to delete bridge record %s: %w", key, err)
	}
	return nil
}

func (r *RedisRepository) DeleteAll(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, r.hashKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to clear bridge records: %w", err)
	}
	return nil
}
