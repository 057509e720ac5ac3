// Package state rebuilds a tenant's materialized business-context view
// from its event ledger and caches the result.
//
// The projector is the only reader that folds the ledger and the only
// writer of the materialized-view cache. Correctness never depends on
// the cache: a miss (or a broken cache) always falls back to a full
// replay against the event store.
package state

import "time"

// Cache is the materialized-view cache backend.
// Implementations: ristretto (local), or any get/set/delete store with
// TTL support. No consistency guarantee beyond eventual invalidation.
type Cache interface {
	// Get returns the cached value for key, or ok=false on a miss.
	Get(key string) ([]byte, bool)

	// Set stores value under key for at most ttl. Failures are the
	// adapter's to log; callers never depend on the write landing.
	Set(key string, value []byte, ttl time.Duration)

	// Delete drops the key.
	Delete(key string)
}

// CacheKey builds the materialized-view cache key for a tenant and
// business context. Every event append must invalidate this exact key.
func CacheKey(tenantID, contextID string) string {
	return "state:" + tenantID + ":" + contextID
}
