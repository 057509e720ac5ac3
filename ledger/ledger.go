// Package ledger defines the append-only event store behind a tenant's
// business context. The store is the single source of truth: caches and
// materialized views are always rebuildable from it and never replace
// it for correctness-critical reads.
package ledger

import (
	"context"

	"github.com/becomeliminal/strata-go-sdk/core"
)

// Query narrows an event read. Results are always ordered by creation
// time ascending with the event id as a stable tie-break, so a replay
// sees events exactly as they were appended.
type Query struct {
	// Type filters to one event type when non-empty.
	Type core.EventType

	// Limit caps the result count; 0 means no limit.
	Limit int
}

// TenantContext identifies one (tenant, business context) pair.
type TenantContext struct {
	TenantID  string
	ContextID string
}

// EventStore is the persistence backend for the ledger.
// Implementations: SQLiteStore (local), MemStore (tests, ephemeral).
type EventStore interface {
	// Append writes one immutable event and returns its assigned id.
	// The store mints the id; any id on the passed event is ignored.
	Append(ctx context.Context, e *core.Event) (string, error)

	// Query returns the tenant's events in creation order.
	Query(ctx context.Context, tenantID, contextID string, q Query) ([]core.Event, error)

	// Delete removes events by id. Used only by compaction.
	Delete(ctx context.Context, ids []string) error

	// PendingTenants returns the distinct (tenant, context) pairs that
	// have at least one event of the given type.
	PendingTenants(ctx context.Context, t core.EventType) ([]TenantContext, error)

	// Close releases resources.
	Close() error
}
