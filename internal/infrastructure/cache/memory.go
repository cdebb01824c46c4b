package cache

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryReportCache is an in-process port.ReportCache for single-instance
// deployments without Redis.
type MemoryReportCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryReportCache creates an empty cache
func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{
		entries: make(map[string]map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the unexpired value for the user's key
func (c *MemoryReportCache) Get(ctx context.Context, userID, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[userID][key]
	if !ok || (!e.expiresAt.IsZero() && c.now().After(e.expiresAt)) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value for ttl. A ttl <= 0 never expires.
func (c *MemoryReportCache) Set(ctx context.Context, userID, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.entries[userID]
	if !ok {
		user = make(map[string]memoryEntry)
		c.entries[userID] = user
	}

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	user[key] = e
	return nil
}

// Invalidate drops every entry of the user
func (c *MemoryReportCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
	return nil
}

var _ port.ReportCache = (*MemoryReportCache)(nil)
