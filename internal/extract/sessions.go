package extract

import (
	"sync"
	"time"

	"github.com/gofiber/storage/redis/v3"
)

// SessionCache stores primary-source session tokens between requests. Its
// method set matches fiber.Storage, so any fiber storage backend fits.
type SessionCache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// NewRedisSessionCache returns a Redis-backed cache shared across instances.
func NewRedisSessionCache(url string) SessionCache {
	return redis.New(redis.Config{URL: url})
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is a process-local SessionCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns nil, nil for a missing or expired key.
func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	return append([]byte(nil), e.val...), nil
}

// Set stores val; exp of zero means no expiry.
func (m *MemoryCache) Set(key string, val []byte, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{val: append([]byte(nil), val...)}
	if exp > 0 {
		e.expires = m.now().Add(exp)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
