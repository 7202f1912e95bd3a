package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryCache — кеш одного процесса с ограничением числа ключей.
// При переполнении вытесняются самые старые ключи.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	order   []string
	maxKeys int
	now     func() time.Time
	stats   counters
}

// NewMemoryCache создаёт кеш на maxKeys ключей (0 — 4096)
func NewMemoryCache(maxKeys int) *MemoryCache {
	if maxKeys <= 0 {
		maxKeys = 4096
	}
	return &MemoryCache{
		items:   make(map[string]memoryItem),
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer m.stats.recordLatency(start)

	m.mu.Lock()
	item, ok := m.items[key]
	if ok && !item.expires.IsZero() && !m.now().Before(item.expires) {
		ok = false // просроченный ключ остаётся до вытеснения
	}
	m.mu.Unlock()

	if !ok {
		m.stats.miss()
		return nil, ErrCacheMiss
	}
	m.stats.hit()
	return item.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expires = m.now().Add(ttl)
	}
	if _, exists := m.items[key]; !exists {
		m.order = append(m.order, key)
	}
	m.items[key] = item
	m.evictLocked()
	return nil
}

func (m *MemoryCache) evictLocked() {
	for len(m.items) > m.maxKeys && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.items, oldest)
	}
}

// Len возвращает число хранимых ключей
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryItem)
	m.order = nil
	return nil
}

func (m *MemoryCache) GetMetrics() CacheMetrics {
	return m.stats.snapshot()
}
