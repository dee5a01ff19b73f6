// Package storage contains the durable persistence adapters: a Redis-backed
// object store for invoice documents and a SQL Server-backed table store for
// order status records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// ErrObjectNotFound is returned when a requested invoice object does not
// exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// RedisObjectStore persists invoice documents as opaque values keyed by
// object name. Writes are plain SETs, so re-processing an order overwrites
// the previous document (last write wins).
type RedisObjectStore struct {
	cli    *redis.Client
	logger zerolog.Logger
}

// NewRedisObjectStore connects to the Redis instance at addr.
func NewRedisObjectStore(addr string, logger zerolog.Logger) *RedisObjectStore {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &RedisObjectStore{
		cli:    redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

// Put stores the document under the supplied key, overwriting any previous
// value.
func (s *RedisObjectStore) Put(ctx context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("storage: object key is required")
	}
	if err := s.cli.Set(ctx, key, body, 0).Err(); err != nil {
		return fmt.Errorf("storage: put object %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("storage: object written")
	return nil
}

// Get fetches a previously stored document.
func (s *RedisObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("storage: get object %s: %w", key, err)
	}
	return body, nil
}

// Ping verifies connectivity, used at startup.
func (s *RedisObjectStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisObjectStore) Close() error {
	return s.cli.Close()
}
