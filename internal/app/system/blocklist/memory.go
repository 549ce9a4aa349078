package blocklist

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a process-local Blocklist. Expired entries are swept by the
// cache janitor every cleanupInterval.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an in-memory blocklist.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{c: gocache.New(DefaultTTL, cleanupInterval)}
}

func (m *Memory) Put(_ context.Context, token string, ttl time.Duration) error {
	m.c.Set(Digest(token), struct{}{}, effectiveTTL(ttl))
	return nil
}

func (m *Memory) IsBlocked(_ context.Context, token string) (bool, error) {
	_, ok := m.c.Get(Digest(token))
	return ok, nil
}

func (m *Memory) Remove(_ context.Context, token string) error {
	m.c.Delete(Digest(token))
	return nil
}

// Len counts entries that have not been swept yet, expired or not.
func (m *Memory) Len(context.Context) (int, error) {
	return m.c.ItemCount(), nil
}

// Sweep removes expired entries now.
func (m *Memory) Sweep() { m.c.DeleteExpired() }
