package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the latest trader blob between ticks for the paper harness.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, blob string) error
}

// MemoryStore holds the blob in process.
type MemoryStore struct {
	mu   sync.Mutex
	blob string
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load returns the last saved blob.
func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blob, nil
}

// Save replaces the stored blob.
func (m *MemoryStore) Save(_ context.Context, blob string) error {
	m.mu.Lock()
	m.blob = blob
	m.mu.Unlock()
	return nil
}

// RedisStore keeps the blob under a single key so restarts resume with history.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, key string, ttl time.Duration) (*RedisStore, error) {
	if key == "" {
		key = "tickbot:trader_data"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, key: key, ttl: ttl}, nil
}

// Load returns the stored blob; a missing key is an empty blob.
func (r *RedisStore) Load(ctx context.Context) (string, error) {
	blob, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return blob, nil
}

// Save writes the blob, applying the configured TTL (zero keeps it forever).
func (r *RedisStore) Save(ctx context.Context, blob string) error {
	if err := r.client.Set(ctx, r.key, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Close releases the client.
func (r *RedisStore) Close() error { return r.client.Close() }
