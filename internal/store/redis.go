package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyRedisURL = errors.New("empty redis connection URL")
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")

	errGuardMismatch = errors.New("guard mismatch")
)

// RedisConfig controls how RedisStore connects.
type RedisConfig struct {
	URL            string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// DefaultRedisConfig returns connection settings for url with a short retry
// budget.
func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:            url,
		ConnectTimeout: 30 * time.Second,
		RetryAttempts:  3,
		RetryInterval:  5 * time.Second,
	}
}

// RedisStore implements KV on a Redis server.
type RedisStore struct {
	db redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{db: client}
}

// ConnectRedis dials the server in cfg, pinging until it answers or the
// retry budget runs out.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyRedisURL
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return NewRedisStore(client), nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// Get reads every key with a single MGET.
func (s *RedisStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, v := range vals {
		switch val := v.(type) {
		case nil:
			// missing key
		case string:
			out[keys[i]] = []byte(val)
		default:
			return nil, fmt.Errorf("redis mget: unexpected value type %T for %s", v, keys[i])
		}
	}
	return out, nil
}

// Set writes every pair with one MSET inside MULTI/EXEC.
func (s *RedisStore) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	pairs := make([]any, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}

	_, err := s.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.MSet(ctx, pairs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mset: %w", err)
	}
	return nil
}

// CompareAndSet watches guard, checks it against expected and writes values
// in one MULTI/EXEC. EXEC aborts when another client touched guard in
// between, which is reported the same as a mismatch.
func (s *RedisStore) CompareAndSet(ctx context.Context, guard string, expected []byte, values map[string][]byte) (bool, error) {
	if len(values[guard]) == 0 {
		return false, fmt.Errorf("compare-and-set: no new value for guard %s", guard)
	}

	pairs := make([]any, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}

	err := s.db.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, guard).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}
		if !bytes.Equal(current, expected) {
			return errGuardMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.MSet(ctx, pairs...)
			return nil
		})
		return err
	}, guard)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errGuardMismatch), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis compare-and-set: %w", err)
	}
}

// Close terminates the Redis connection.
func (s *RedisStore) Close() error {
	return s.db.Close()
}
