package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
type memoryClient struct {
	prefix string
	c      *gocache.Cache
	// cas serializa las operaciones de lectura-y-escritura (CompareAndDelete)
	// contra Set/Delete.
	cas    sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory crea un cliente de cache en memoria.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (m *memoryClient) key(k string) string { return prefixed(m.prefix, k) }

func (m *memoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		m.misses.Add(1)
		return "", ErrNotFound
	}
	m.hits.Add(1)
	s, _ := v.(string)
	return s, nil
}

func (m *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cas.Lock()
	defer m.cas.Unlock()
	m.c.Set(m.key(key), value, ttl)
	return nil
}

func (m *memoryClient) Delete(_ context.Context, key string) error {
	m.cas.Lock()
	defer m.cas.Unlock()
	m.c.Delete(m.key(key))
	return nil
}

func (m *memoryClient) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	m.cas.Lock()
	defer m.cas.Unlock()

	k := m.key(key)
	v, ok := m.c.Get(k)
	if !ok || v.(string) != expected {
		return false, nil
	}
	m.c.Delete(k)
	return true, nil
}

func (m *memoryClient) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.cas.Lock()
	defer m.cas.Unlock()

	k := m.key(key)
	if _, exp, ok := m.c.GetWithExpiration(k); ok {
		n, err := m.c.IncrementInt64(k, 1)
		if err != nil {
			return 0, 0, fmt.Errorf("cache: memory incr: %w", err)
		}
		return n, time.Until(exp), nil
	}
	m.c.Set(k, int64(1), window)
	return 1, window, nil
}

func (m *memoryClient) Ping(context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}

func (m *memoryClient) Stats(context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(m.c.ItemCount()),
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}, nil
}
