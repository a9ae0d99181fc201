package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Tier is the durable storage tier backed by Redis. Every key is namespaced
// under the configured prefix so Clear never touches foreign data.
type Tier struct {
	rdb    *redis.Client
	prefix string
}

// NewTier connects to Redis and verifies the connection.
func NewTier(cfg Config) (*Tier, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewTierWithClient(rdb, cfg.KeyPrefix), nil
}

// NewTierWithClient wraps an existing client.
func NewTierWithClient(rdb *redis.Client, prefix string) *Tier {
	if prefix == "" {
		prefix = "intake"
	}
	return &Tier{rdb: rdb, prefix: prefix}
}

// Close closes the Redis connection.
func (t *Tier) Close() error {
	return t.rdb.Close()
}

func (t *Tier) key(k string) string {
	return fmt.Sprintf("%s:%s", t.prefix, k)
}

func (t *Tier) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := t.rdb.Get(ctx, t.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

func (t *Tier) Set(ctx context.Context, key, value string) error {
	if err := t.rdb.Set(ctx, t.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

func (t *Tier) Delete(ctx context.Context, key string) error {
	if err := t.rdb.Del(ctx, t.key(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Clear removes every key under the tier prefix.
func (t *Tier) Clear(ctx context.Context) error {
	iter := t.rdb.Scan(ctx, 0, t.key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
