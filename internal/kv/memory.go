package kv

import (
	"context"
	"sync"

	"github.com/zjrosen/taskdeck/internal/cachemanager"
)

// Memory is a Persister that lives only as long as the process.
type Memory struct {
	mu    sync.Mutex
	cache *cachemanager.InMemoryCacheManager[string, string]
}

var (
	_ Persister   = (*Memory)(nil)
	_ BatchSetter = (*Memory)(nil)
)

// NewMemory creates an empty in-memory persister.
func NewMemory() *Memory {
	return &Memory{
		cache: cachemanager.NewInMemoryCacheManager[string, string](
			"session-kv", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.cache.Get(ctx, key)
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(ctx, key, value, cachemanager.NoExpiration)
	return nil
}

// SetMany writes all values under one lock.
func (m *Memory) SetMany(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.cache.Set(ctx, k, v, cachemanager.NoExpiration)
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Flush(ctx)
}
