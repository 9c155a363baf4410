package cache

import (
	"context"
	"sync"
	"time"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
)

type memoryEntry struct {
	desc    *descriptor.Descriptor
	expires time.Time
}

type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *Memory) Get(_ context.Context, organization string) (*descriptor.Descriptor, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[organization]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[organization]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, organization)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.desc.Clone(), true, nil
}

func (c *Memory) Set(_ context.Context, d *descriptor.Descriptor) error {
	if d == nil || d.Organization == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[d.Organization] = memoryEntry{desc: d.Clone(), expires: c.now().Add(c.ttl)}
	return nil
}

func (c *Memory) Invalidate(_ context.Context, organization string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, organization)
	return nil
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
