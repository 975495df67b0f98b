package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu          sync.RWMutex
	entries     map[string]memoryEntry
	serviceName string
}

// NewMemoryCache is the in-process fallback used when no redis address is
// configured (and in tests).
func NewMemoryCache(serviceName string) Cache {
	return &memoryCache{
		entries:     make(map[string]memoryEntry),
		serviceName: serviceName,
	}
}

func (m *memoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := time.Time{}
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: expires}
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	_ = ctx
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", nil
	}
	return entry.value, nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, operation, key)
}
