// Package kubecache caches the per-user bearer tokens handed to the
// Kubernetes proxy. Logging out purges the user's entry.
package kubecache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Cache maps user IDs to proxy tokens.
type Cache struct {
	mu sync.Mutex
	c  *ttlcache.Cache[string, string]
}

// New starts a cache whose entries live for ttl after creation.
func New(ttl time.Duration) *Cache {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &Cache{c: c}
}

// GetOrCreate returns the user's token, minting one if none is cached.
func (k *Cache) GetOrCreate(userID string) string {
	k.mu.Lock()
	defer k.mu.Unlock()

	if item := k.c.Get(userID); item != nil {
		return item.Value()
	}
	token := uuid.NewString()
	k.c.Set(userID, token, ttlcache.DefaultTTL)
	return token
}

// Has reports whether the user has a live token.
func (k *Cache) Has(userID string) bool {
	return k.c.Has(userID)
}

// RemoveUser drops the user's token.
func (k *Cache) RemoveUser(userID string) {
	k.c.Delete(userID)
}

// Len is the number of cached users.
func (k *Cache) Len() int { return k.c.Len() }

// Stop halts the expiry loop.
func (k *Cache) Stop() { k.c.Stop() }
