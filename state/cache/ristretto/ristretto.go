// Package ristretto adapts dgraph-io/ristretto as the materialized-view
// cache.
package ristretto

import (
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/strata-go-sdk/state"
)

// Cache implements state.Cache on a ristretto cache. Entry cost is the
// serialized state size in bytes.
type Cache struct {
	c *ristretto.Cache
}

// New creates a cache sized for roughly a few thousand tenants' worth
// of materialized state.
func New() (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,  // ~10x expected live entries
		MaxCost:     64 << 20, // 64 MiB of serialized state
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get returns the cached value for key.
func (r *Cache) Get(key string) ([]byte, bool) {
	v, ok := r.c.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

// Set stores value under key with the given TTL. Ristretto admission
// may reject the write; that only costs a later rebuild, so it is
// logged and not surfaced.
func (r *Cache) Set(key string, value []byte, ttl time.Duration) {
	if !r.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		log.Printf("[CACHE] Set rejected for %s (%d bytes)", key, len(value))
	}
}

// Delete drops the key.
func (r *Cache) Delete(key string) {
	r.c.Del(key)
}

// Wait blocks until buffered writes are applied. Tests use this;
// production code never needs it.
func (r *Cache) Wait() {
	r.c.Wait()
}

// Close releases the cache's resources.
func (r *Cache) Close() {
	r.c.Close()
}

var _ state.Cache = (*Cache)(nil)
