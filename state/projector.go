package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/ledger"
)

// DefaultCacheTTL is how long a rebuilt state stays cached.
const DefaultCacheTTL = time.Hour

// Projector serves the current materialized state for a tenant: cached
// on the fast path, rebuilt by full ledger replay on a miss.
type Projector struct {
	store ledger.EventStore
	cache Cache
	ttl   time.Duration
}

// Option configures the projector.
type Option func(*Projector)

// WithCacheTTL overrides the cached-state TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *Projector) {
		p.ttl = ttl
	}
}

// NewProjector creates a projector over the given store and cache.
// cache may be nil, in which case every read replays the ledger.
func NewProjector(store ledger.EventStore, cache Cache, opts ...Option) *Projector {
	p := &Projector{
		store: store,
		cache: cache,
		ttl:   DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetLatestState returns the tenant's current state. A cache hit is
// returned as-is without touching the event store; a miss triggers a
// full ordered replay and repopulates the cache. A store read failure
// propagates — the projector never substitutes a stale or empty state.
func (p *Projector) GetLatestState(ctx context.Context, tenantID, contextID string) (*core.MaterializedState, error) {
	key := CacheKey(tenantID, contextID)

	if p.cache != nil {
		if data, ok := p.cache.Get(key); ok {
			var s core.MaterializedState
			if err := json.Unmarshal(data, &s); err == nil {
				return &s, nil
			}
			// Corrupt entry: drop it and rebuild.
			log.Printf("[PROJECTOR] Dropping undecodable cache entry for %s", key)
			p.cache.Delete(key)
		}
	}

	return p.Rebuild(ctx, tenantID, contextID)
}

// Rebuild replays the full ledger for the tenant, bypassing the cache
// read but refreshing the cached entry on success.
func (p *Projector) Rebuild(ctx context.Context, tenantID, contextID string) (*core.MaterializedState, error) {
	events, err := p.store.Query(ctx, tenantID, contextID, ledger.Query{})
	if err != nil {
		return nil, fmt.Errorf("%w: replay query for tenant %s: %v", core.ErrStoreUnavailable, tenantID, err)
	}

	s := Replay(tenantID, contextID, events)

	if p.cache != nil {
		if data, err := json.Marshal(s); err == nil {
			p.cache.Set(CacheKey(tenantID, contextID), data, p.ttl)
		} else {
			// Never fails for this type in practice; correctness does
			// not depend on the cache either way.
			log.Printf("[PROJECTOR] Cache encode failed for tenant %s: %v", tenantID, err)
		}
	}

	return s, nil
}

// Invalidate drops the cached state for a tenant. Must be called after
// every event append.
func (p *Projector) Invalidate(tenantID, contextID string) {
	if p.cache == nil {
		return
	}
	p.cache.Delete(CacheKey(tenantID, contextID))
}
