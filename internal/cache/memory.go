package cache

import (
	"context"
	"sync"
	"time"

	"chart-terminal/internal/model"
)

// Memory is an in-process TTL cache with LRU eviction. Expired entries
// are evicted lazily on the next Set.
type Memory struct {
	mu          sync.RWMutex
	entries     map[Key]*Entry
	maxSize     int
	ttl         time.Duration
	accessOrder []Key // LRU order, most recent at end
	now         func() time.Time
}

// NewMemory creates a memory cache holding up to maxSize entries, each
// fresh for ttl.
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	return &Memory{
		entries:     make(map[Key]*Entry),
		maxSize:     maxSize,
		ttl:         ttl,
		accessOrder: make([]Key, 0),
		now:         time.Now,
	}
}

// Get retrieves a cached series if it exists and is not expired.
func (m *Memory) Get(_ context.Context, key Key) (*model.ChartSeries, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[key]
	if !exists {
		return nil, false
	}
	if m.now().Sub(entry.FetchedAt) > m.ttl {
		return nil, false
	}
	if entry.Series == nil || len(entry.Series.Points) == 0 {
		// Corrupt entry reads as a miss
		return nil, false
	}
	return entry.Series, true
}

// Set stores a series under key, evicting the least recently used entry
// when the cache is full.
func (m *Memory) Set(_ context.Context, key Key, series *model.ChartSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanupExpired()

	if len(m.entries) >= m.maxSize && m.entries[key] == nil {
		if len(m.accessOrder) > 0 {
			oldest := m.accessOrder[0]
			delete(m.entries, oldest)
			m.accessOrder = m.accessOrder[1:]
		}
	}

	m.entries[key] = &Entry{Series: series, FetchedAt: m.now()}
	m.touch(key)
}

// Clear clears all cache entries.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]*Entry)
	m.accessOrder = m.accessOrder[:0]
}

// Size returns the current entry count.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// touch moves key to the most-recent end of the LRU order.
func (m *Memory) touch(key Key) {
	for i, k := range m.accessOrder {
		if k == key {
			m.accessOrder = append(m.accessOrder[:i], m.accessOrder[i+1:]...)
			break
		}
	}
	m.accessOrder = append(m.accessOrder, key)
}

// cleanupExpired removes expired entries. Caller holds the write lock.
func (m *Memory) cleanupExpired() {
	now := m.now()
	for key, entry := range m.entries {
		if now.Sub(entry.FetchedAt) > m.ttl {
			delete(m.entries, key)
			for i, k := range m.accessOrder {
				if k == key {
					m.accessOrder = append(m.accessOrder[:i], m.accessOrder[i+1:]...)
					break
				}
			}
		}
	}
}
