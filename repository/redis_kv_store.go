package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisKeyValueStore keeps values in Redis under an optional key prefix
type RedisKeyValueStore struct {
	rc     *redis.Client
	prefix string
}

func NewRedisKeyValueStore(rc *redis.Client, prefix string) *RedisKeyValueStore {
	return &RedisKeyValueStore{rc: rc, prefix: prefix}
}

func (s *RedisKeyValueStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rc.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: redis get %s: %v", ErrPersistenceUnavailable, key, err)
	}
	return v, true, nil
}

// Set stores the value without expiry
func (s *RedisKeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := s.rc.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrPersistenceUnavailable, key, err)
	}
	return nil
}

func (s *RedisKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.rc.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %v", ErrPersistenceUnavailable, key, err)
	}
	return nil
}

// Keys scans for keys with the given prefix; the store prefix is stripped from the result.
// SCAN may return a key more than once, the result holds each key once in lexical order.
func (s *RedisKeyValueStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	iter := s.rc.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		seen[strings.TrimPrefix(iter.Val(), s.prefix)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: redis scan %s: %v", ErrPersistenceUnavailable, prefix, err)
	}
	return slices.Sorted(maps.Keys(seen)), nil
}
