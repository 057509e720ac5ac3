package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/becomeliminal/strata-go-sdk/core"
)

// MemStore is an in-memory EventStore for local development and tests.
// Ids are a zero-padded sequence counter, so id order equals append
// order and the created_at tie-break is exact.
type MemStore struct {
	mu     sync.Mutex
	events []core.Event
	seq    int

	// FailNext forces the next call to fail, for exercising the
	// store-unavailable paths in tests.
	FailNext error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// Append writes one event and returns its assigned id.
func (s *MemStore) Append(ctx context.Context, e *core.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return "", err
	}
	if !e.Type.Valid() {
		return "", fmt.Errorf("append: unknown event type %q", e.Type)
	}

	s.seq++
	stored := *e
	stored.ID = fmt.Sprintf("evt-%08d", s.seq)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, stored)
	return stored.ID, nil
}

// Query returns events in append order, optionally filtered and limited.
func (s *MemStore) Query(ctx context.Context, tenantID, contextID string, q Query) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	var out []core.Event
	for _, e := range s.events {
		if e.TenantID != tenantID || e.ContextID != contextID {
			continue
		}
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Delete removes events by id.
func (s *MemStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

// PendingTenants returns distinct (tenant, context) pairs holding at
// least one event of the given type.
func (s *MemStore) PendingTenants(ctx context.Context, t core.EventType) ([]TenantContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	seen := make(map[TenantContext]bool)
	var out []TenantContext
	for _, e := range s.events {
		if e.Type != t {
			continue
		}
		tc := TenantContext{TenantID: e.TenantID, ContextID: e.ContextID}
		if !seen[tc] {
			seen[tc] = true
			out = append(out, tc)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}

var _ EventStore = (*MemStore)(nil)
