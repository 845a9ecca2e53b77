package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ KeyValueStore = (*RedisStore)(nil)

// RedisStore is a Redis-backed KeyValueStore. All keys are namespaced with
// a fixed prefix so that Clear never touches foreign data in a shared
// Redis instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed store. namespace defaults to
// "storyboard:" when empty.
func NewRedisStore(client *redis.Client, namespace string, logger *zap.Logger) *RedisStore {
	if namespace == "" {
		namespace = "storyboard:"
	}
	return &RedisStore{
		client:    client,
		namespace: namespace,
		logger:    logger.Named("RedisStore"),
	}
}

func (s *RedisStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.namespace+key, data, 0).Err(); err != nil {
		s.logger.Error("Failed to set key in redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save key %q in redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		s.logger.Error("Failed to get key from redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to load key %q from redis: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value for key %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.namespace+key).Err(); err != nil {
		s.logger.Error("Failed to delete key from redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete key %q from redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.scan(ctx, s.namespace+prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.namespace))
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx, s.namespace+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Error("Failed to clear redis namespace", zap.Error(err))
		return fmt.Errorf("failed to clear redis store: %w", err)
	}
	s.logger.Debug("Cleared redis namespace", zap.Int("deleted", len(keys)))
	return nil
}

// scan collects all keys matching pattern using SCAN, never KEYS.
func (s *RedisStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			s.logger.Error("Failed to scan redis keys", zap.String("pattern", pattern), zap.Error(err))
			return nil, fmt.Errorf("failed to scan redis keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
