// Package store defines the generic key-value persistence contract the
// scoring/runtime core writes through. The core has no opinion on the
// storage technology; it only needs a place to drop records keyed by a
// string id inside named collections.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a record id is absent from a collection.
var ErrNotFound = errors.New("record not found")

// ResultsCollection holds freshly submitted attempt results until the
// result worker lands them in PostgreSQL.
const ResultsCollection = "results"

// KV is an async key-value store over named collections. Records are
// opaque JSON blobs carrying their own "id" field.
type KV interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	GetAll(ctx context.Context, collection string) ([][]byte, error)
	Set(ctx context.Context, collection, id string, record []byte) error
	Delete(ctx context.Context, collection, id string) error
	Clear(ctx context.Context, collection string) error
}

// RedisKV implements KV with one Redis hash per collection.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV creates a RedisKV. prefix namespaces collections so multiple
// deployments can share one Redis database.
func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (s *RedisKV) key(collection string) string {
	return fmt.Sprintf("%s:collection:%s", s.prefix, collection)
}

func (s *RedisKV) Get(ctx context.Context, collection, id string) ([]byte, error) {
	val, err := s.rdb.HGet(ctx, s.key(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s/%s: %w", collection, id, err)
	}
	return []byte(val), nil
}

func (s *RedisKV) GetAll(ctx context.Context, collection string) ([][]byte, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("kv get all %s: %w", collection, err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

func (s *RedisKV) Set(ctx context.Context, collection, id string, record []byte) error {
	if !json.Valid(record) {
		return fmt.Errorf("kv set %s/%s: record is not valid JSON", collection, id)
	}
	if err := s.rdb.HSet(ctx, s.key(collection), id, record).Err(); err != nil {
		return fmt.Errorf("kv set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, collection, id string) error {
	if err := s.rdb.HDel(ctx, s.key(collection), id).Err(); err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisKV) Clear(ctx context.Context, collection string) error {
	if err := s.rdb.Del(ctx, s.key(collection)).Err(); err != nil {
		return fmt.Errorf("kv clear %s: %w", collection, err)
	}
	return nil
}
