// Package sweeper compacts old low-value interaction events into one
// summarizing checkpoint plus a searchable long-term memory record,
// then deletes the originals so the ledger never grows unbounded.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/ledger"
	"github.com/becomeliminal/strata-go-sdk/memory"
	"github.com/becomeliminal/strata-go-sdk/state"
)

// Summary is the summarizer's condensation of an event batch.
type Summary struct {
	Summary      string
	KeyTakeaways []string
}

// Summarizer condenses an interaction-event batch into a summary.
// Implementations must fail loudly: an empty summary is an error, never
// a silent success. This is the expensive call in a compaction.
type Summarizer interface {
	Summarize(ctx context.Context, events []core.Event) (*Summary, error)
}

// Config holds the sweeper's tuning knobs.
type Config struct {
	// Threshold is the minimum interaction backlog worth a summarizer
	// call; smaller backlogs are a no-op.
	Threshold int

	// FetchLimit caps how many events one compaction consumes.
	FetchLimit int

	// SummarizeTimeout bounds the summarizer call.
	SummarizeTimeout time.Duration

	// VectorizeTimeout bounds the long-term memory write.
	VectorizeTimeout time.Duration

	// LockExpiry bounds how long a per-tenant compaction marker can
	// outlive a crashed attempt.
	LockExpiry time.Duration

	// TenantImportance and AgentImportance classify the long-term
	// memory writes the sweeper makes.
	TenantImportance core.Importance
	AgentImportance  core.Importance
}

// DefaultConfig returns the stock sweeper configuration.
var DefaultConfig = &Config{
	Threshold:        10,
	FetchLimit:       50,
	SummarizeTimeout: 30 * time.Second,
	VectorizeTimeout: 10 * time.Second,
	LockExpiry:       5 * time.Minute,
	TenantImportance: core.ImportanceStandard,
	AgentImportance:  core.ImportanceStandard,
}

// CompactionResult reports one tenant's compaction.
type CompactionResult struct {
	TenantID     string
	ContextID    string
	Compacted    int
	CheckpointID string

	// VectorizeSkipped is set when the long-term memory write failed;
	// the checkpoint was still written.
	VectorizeSkipped bool

	// DeleteFailed is set when the checkpoint landed but the source
	// events could not be removed. A later sweep may re-summarize them
	// into a redundant checkpoint; that duplication is accepted in
	// preference to losing ledger facts.
	DeleteFailed bool
}

// SweepStats aggregates one full sweep cycle.
type SweepStats struct {
	Total      int
	Successful int
	Failed     int
	Skipped    int
}

// Sweeper compacts tenants' interaction backlogs. Safe for concurrent
// use; compaction is serialized per tenant by an in-process marker.
type Sweeper struct {
	store      ledger.EventStore
	tiers      *memory.Tiers
	summarizer Summarizer
	projector  *state.Projector
	config     *Config

	locks sync.Map // tenant key -> *lockMarker
	clock func() time.Time
}

// lockMarker is one acquisition of a tenant's compaction lock. Release
// compares by marker identity, so a holder that had its expired marker
// stolen cannot free the stealer's lock.
type lockMarker struct {
	expiry time.Time
}

// Option configures the sweeper.
type Option func(*Sweeper)

// WithProjector wires the projector whose cache is invalidated after a
// checkpoint append.
func WithProjector(p *state.Projector) Option {
	return func(s *Sweeper) {
		s.projector = p
	}
}

// WithClock overrides the time source, for lock-expiry tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		s.clock = clock
	}
}

// New creates a sweeper. config may be nil for defaults.
func New(store ledger.EventStore, tiers *memory.Tiers, summarizer Summarizer, config *Config, opts ...Option) *Sweeper {
	if config == nil {
		config = DefaultConfig
	}
	s := &Sweeper{
		store:      store,
		tiers:      tiers,
		summarizer: summarizer,
		config:     config,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compress compacts up to limit of the tenant's oldest interaction
// events (limit 0 uses the configured fetch limit).
//
// The attempt proceeds Gathered -> Summarized -> Vectorized (or
// skipped) -> Checkpointed -> Compacted. Any failure before the
// checkpoint leaves the ledger untouched and is retried on a later
// cycle; a failed delete after the checkpoint is reported, not rolled
// back.
func (s *Sweeper) Compress(ctx context.Context, tenantID, contextID string, limit int) (*CompactionResult, error) {
	key := tenantID + "\x00" + contextID
	marker, ok := s.tryLock(key)
	if !ok {
		return nil, fmt.Errorf("compaction already in progress for tenant %s", tenantID)
	}
	defer s.unlock(key, marker)

	if limit <= 0 {
		limit = s.config.FetchLimit
	}

	// Gather the oldest interactions.
	events, err := s.store.Query(ctx, tenantID, contextID, ledger.Query{
		Type:  core.EventUserInteraction,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gather interactions for tenant %s: %v", core.ErrStoreUnavailable, tenantID, err)
	}

	// Gate: the summarizer call is the expensive step; small backlogs
	// are not worth it.
	if len(events) < s.config.Threshold {
		return nil, fmt.Errorf("%w: tenant %s has %d interactions, threshold %d",
			core.ErrBelowThreshold, tenantID, len(events), s.config.Threshold)
	}

	// Summarize. A failure here aborts with zero ledger mutation.
	sumCtx, cancel := context.WithTimeout(ctx, s.config.SummarizeTimeout)
	summary, err := s.summarizer.Summarize(sumCtx, events)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: tenant %s: %v", core.ErrCompressionFailed, tenantID, err)
	}
	if summary == nil || summary.Summary == "" {
		return nil, fmt.Errorf("%w: tenant %s: summarizer returned empty summary", core.ErrCompressionFailed, tenantID)
	}

	eventIDs := make([]string, len(events))
	for i, e := range events {
		eventIDs[i] = e.ID
	}

	result := &CompactionResult{
		TenantID:  tenantID,
		ContextID: contextID,
		Compacted: len(events),
	}

	// Vectorize into long-term memory. Best effort: losing
	// searchability is acceptable, losing the ledger entry is not.
	vecCtx, cancel := context.WithTimeout(ctx, s.config.VectorizeTimeout)
	_, err = s.tiers.StoreCheckpoint(vecCtx, tenantID, summary.Summary, summary.KeyTakeaways, eventIDs,
		s.config.TenantImportance, s.config.AgentImportance)
	cancel()
	if err != nil {
		result.VectorizeSkipped = true
		log.Printf("[SWEEPER] %v", fmt.Errorf("%w: tenant %s: %v", core.ErrVectorizationFailed, tenantID, err))
	}

	// Checkpoint, then delete, as close together as the store allows.
	checkpointID, err := s.store.Append(ctx, &core.Event{
		TenantID:  tenantID,
		ContextID: contextID,
		Type:      core.EventSystemCheckpoint,
		Payload: core.SystemCheckpointPayload{
			Summary:            summary.Summary,
			KeyTakeaways:       summary.KeyTakeaways,
			CompressedEventIDs: eventIDs,
			CompressedCount:    len(events),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: write checkpoint for tenant %s: %v", core.ErrStoreUnavailable, tenantID, err)
	}
	result.CheckpointID = checkpointID

	if err := s.store.Delete(ctx, eventIDs); err != nil {
		// The checkpoint is in; a later sweep may redundantly
		// re-summarize these events, which beats losing them.
		result.DeleteFailed = true
		log.Printf("[SWEEPER] Delete after checkpoint failed for tenant %s: %v", tenantID, err)
	}

	if s.projector != nil {
		s.projector.Invalidate(tenantID, contextID)
	}

	log.Printf("[SWEEPER] Compacted %d interactions for tenant %s into checkpoint %s",
		result.Compacted, tenantID, checkpointID)
	return result, nil
}

// SweepAll compacts every tenant with a pending interaction backlog,
// one tenant at a time. Failures are isolated per tenant: one tenant's
// summarizer outage never blocks the others. Context cancellation
// stops between tenants.
func (s *Sweeper) SweepAll(ctx context.Context) (*SweepStats, error) {
	pending, err := s.store.PendingTenants(ctx, core.EventUserInteraction)
	if err != nil {
		return nil, fmt.Errorf("%w: discover pending tenants: %v", core.ErrStoreUnavailable, err)
	}

	stats := &SweepStats{Total: len(pending)}
	for _, tc := range pending {
		if ctx.Err() != nil {
			log.Printf("[SWEEPER] Sweep cancelled after %d/%d tenants", stats.Successful+stats.Failed+stats.Skipped, stats.Total)
			break
		}

		_, err := s.Compress(ctx, tc.TenantID, tc.ContextID, 0)
		switch {
		case err == nil:
			stats.Successful++
		case errors.Is(err, core.ErrBelowThreshold):
			stats.Skipped++
		default:
			stats.Failed++
			log.Printf("[SWEEPER] Tenant %s failed: %v", tc.TenantID, err)
		}
	}

	log.Printf("[SWEEPER] Sweep done: %d total, %d compacted, %d skipped, %d failed",
		stats.Total, stats.Successful, stats.Skipped, stats.Failed)
	return stats, nil
}

// tryLock acquires the per-tenant compaction marker, stealing it only
// when a previous holder's expiry has passed. The returned marker is
// the caller's proof of ownership for unlock.
func (s *Sweeper) tryLock(key string) (*lockMarker, bool) {
	now := s.clock()
	marker := &lockMarker{expiry: now.Add(s.config.LockExpiry)}
	for {
		held, loaded := s.locks.LoadOrStore(key, marker)
		if !loaded {
			return marker, true
		}
		if h, ok := held.(*lockMarker); ok && now.After(h.expiry) {
			if s.locks.CompareAndSwap(key, held, marker) {
				return marker, true
			}
			continue
		}
		return nil, false
	}
}

// unlock releases the marker only if this caller still owns it. A
// holder whose marker expired and was stolen mid-compaction must not
// free the stealer's lock.
func (s *Sweeper) unlock(key string, marker *lockMarker) {
	s.locks.CompareAndDelete(key, marker)
}
