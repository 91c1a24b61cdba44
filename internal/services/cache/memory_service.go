package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 10 * time.Minute

// MemoryClient is an in-process Store. Values are kept serialized so callers
// never share memory with the cache.
type MemoryClient[T any] struct {
	c *gocache.Cache
}

// NewMemoryBackend returns a go-cache instance that several MemoryClient
// namespaces can share.
func NewMemoryBackend() *gocache.Cache {
	return gocache.New(gocache.NoExpiration, cleanupInterval)
}

func NewMemoryClient[T any](c *gocache.Cache) *MemoryClient[T] {
	return &MemoryClient[T]{c: c}
}

func (m *MemoryClient[T]) Set(ctx context.Context, key string, value T, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	m.c.Set(key, data, expiration)
	return nil
}

//nolint:ireturn
func (m *MemoryClient[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	raw, found := m.c.Get(key)
	if !found {
		return zero, ErrMiss
	}
	data, ok := raw.([]byte)
	if !ok {
		return zero, fmt.Errorf("unexpected cached type %T", raw)
	}

	result := new(T)
	if err := json.Unmarshal(data, result); err != nil {
		return zero, fmt.Errorf("unmarshal: %w", err)
	}
	return *result, nil
}
