package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps the snapshot under a single key without expiry.
type RedisStore struct {
	client redisClient
	addr   string
	key    string
}

// NewRedisStore returns a store writing key through client. addr is only
// used to describe the location.
func NewRedisStore(client redisClient, addr, key string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("redis key is required")
	}
	return &RedisStore{client: client, addr: addr, key: key}, nil
}

// Location returns a redis:// URI of the snapshot key.
func (s *RedisStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.addr, s.key)
}

// Save replaces the snapshot value.
func (s *RedisStore) Save(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Load fetches the snapshot value.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}
