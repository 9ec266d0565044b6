package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore.
const DefaultRedisPrefix = "taxirelay:blocklist"

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix for the set and list keys.
	// Default: DefaultRedisPrefix
	Prefix string
}

// RedisStore shares the block list across replicas.
// Membership lives in a set; the ordered list is kept as a JSON string next to it.
type RedisStore struct {
	rdb     goredis.UniversalClient
	setKey  string
	listKey string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		rdb:     rdb,
		setKey:  prefix + ":set",
		listKey: prefix + ":list",
	}
}

// DialRedis connects to Redis and fails fast if the server is unreachable.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(rdb, cfg.Prefix), nil
}

// IsBlocked checks set membership.
func (s *RedisStore) IsBlocked(ctx context.Context, id string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.setKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("blocklist/redis: is blocked: %w", err)
	}
	return ok, nil
}

// Replace rewrites both keys inside one MULTI/EXEC.
func (s *RedisStore) Replace(ctx context.Context, ids []string) error {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("blocklist/redis: encode list: %w", err)
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.setKey)
		if len(members) > 0 {
			pipe.SAdd(ctx, s.setKey, members...)
		}
		pipe.Set(ctx, s.listKey, encoded, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("blocklist/redis: replace: %w", err)
	}
	return nil
}

// List returns the ordered list. A list that was never set is empty.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	raw, err := s.rdb.Get(ctx, s.listKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("blocklist/redis: list: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("blocklist/redis: decode list: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
