// Package cache stores vision model responses so the same photo is not sent
// to the model twice.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Store is a byte-oriented key/value cache. A miss and a backend failure
// both report ok=false.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
}

// LRU is an in-process store bounded by entry count
type LRU struct {
	cache *lru.Cache[string, []byte]
}

// NewLRU creates an in-process store holding up to size entries
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{cache: c}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	return l.cache.Get(key)
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.cache.Add(key, append([]byte(nil), value...))
	return nil
}

// Len returns the number of cached entries
func (l *LRU) Len() int {
	return l.cache.Len()
}

// Redis is a shared store backed by a Redis server
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis store. Keys are namespaced with prefix and
// expire after ttl (0 keeps them forever).
func NewRedis(addr, password string, db int, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the server is reachable
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
