package sweeper_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/ledger"
	"github.com/becomeliminal/strata-go-sdk/memory"
	"github.com/becomeliminal/strata-go-sdk/memory/embedder/mock"
	"github.com/becomeliminal/strata-go-sdk/state"
	"github.com/becomeliminal/strata-go-sdk/sweeper"
)

// fakeSemanticStore records stored chunks in memory.
type fakeSemanticStore struct {
	mu      sync.Mutex
	chunks  []core.MemoryChunk
	failErr error
}

func (f *fakeSemanticStore) Store(ctx context.Context, chunk *core.MemoryChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.chunks = append(f.chunks, *chunk)
	return nil
}

func (f *fakeSemanticStore) Search(ctx context.Context, tenantID string, embedding []float32, filters map[string]string, limit int) ([]core.MemoryChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.MemoryChunk
	for _, c := range f.chunks {
		if c.TenantID != tenantID {
			continue
		}
		if t, ok := filters["type"]; ok && c.Type != t {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSemanticStore) Delete(ctx context.Context, tenantID, chunkID string) error { return nil }
func (f *fakeSemanticStore) Close() error                                              { return nil }

// fakeSummarizer returns a canned summary, optionally failing for
// chosen tenants, and counts calls.
type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	failFor  map[string]error
	blocking chan struct{} // when set, Summarize waits on it
	entered  chan struct{} // signalled when a blocking call starts
}

func (f *fakeSummarizer) Summarize(ctx context.Context, events []core.Event) (*sweeper.Summary, error) {
	f.mu.Lock()
	f.calls++
	blocking, entered := f.blocking, f.entered
	f.mu.Unlock()

	if blocking != nil {
		entered <- struct{}{}
		<-blocking
	}
	if len(events) > 0 {
		if err, ok := f.failFor[events[0].TenantID]; ok {
			return nil, err
		}
	}
	return &sweeper.Summary{Summary: "S", KeyTakeaways: []string{"K1", "K2"}}, nil
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func seedInteractions(t *testing.T, store ledger.EventStore, tenantID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Append(context.Background(), &core.Event{
			TenantID: tenantID,
			Type:     core.EventUserInteraction,
			Payload:  core.UserInteractionPayload{Kind: "chat", Content: fmt.Sprintf("msg %d", i)},
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func newSweeper(store ledger.EventStore, semantic *fakeSemanticStore, sum sweeper.Summarizer, opts ...sweeper.Option) *sweeper.Sweeper {
	tiers := memory.NewTiers(semantic, mock.New())
	cfg := *sweeper.DefaultConfig
	return sweeper.New(store, tiers, sum, &cfg, opts...)
}

func TestCompressBelowThresholdIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{}
	seedInteractions(t, store, "t1", 5)

	s := newSweeper(store, semantic, sum)

	_, err := s.Compress(ctx, "t1", "", 0)
	if !errors.Is(err, core.ErrBelowThreshold) {
		t.Fatalf("err = %v, want ErrBelowThreshold", err)
	}
	if sum.callCount() != 0 {
		t.Errorf("summarizer called %d times, want 0", sum.callCount())
	}

	remaining, _ := store.Query(ctx, "t1", "", ledger.Query{})
	if len(remaining) != 5 {
		t.Errorf("ledger mutated: %d events, want 5", len(remaining))
	}
	if len(semantic.chunks) != 0 {
		t.Errorf("semantic store mutated: %d chunks", len(semantic.chunks))
	}
}

func TestCompressScenarioTwelveInteractions(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{}
	seedInteractions(t, store, "t1", 12)

	s := newSweeper(store, semantic, sum)

	result, err := s.Compress(ctx, "t1", "", 0)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if result.Compacted != 12 {
		t.Errorf("Compacted = %d, want 12", result.Compacted)
	}
	if result.CheckpointID == "" {
		t.Error("missing checkpoint id")
	}

	interactions, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventUserInteraction})
	if len(interactions) != 0 {
		t.Errorf("%d interactions remain, want 0", len(interactions))
	}

	checkpoints, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventSystemCheckpoint})
	if len(checkpoints) != 1 {
		t.Fatalf("%d checkpoints, want 1", len(checkpoints))
	}
	cp := checkpoints[0].Payload.(core.SystemCheckpointPayload)
	if cp.CompressedCount != 12 || cp.Summary != "S" || len(cp.KeyTakeaways) != 2 {
		t.Errorf("checkpoint payload = %+v", cp)
	}
	if len(cp.CompressedEventIDs) != 12 {
		t.Errorf("checkpoint references %d events, want 12", len(cp.CompressedEventIDs))
	}

	if len(semantic.chunks) != 1 {
		t.Fatalf("%d chunks, want 1", len(semantic.chunks))
	}
	chunk := semantic.chunks[0]
	if chunk.Type != core.ChunkCheckpoint {
		t.Errorf("chunk type = %q, want %q", chunk.Type, core.ChunkCheckpoint)
	}
	if !strings.Contains(chunk.Metadata["source_event_ids"], cp.CompressedEventIDs[0]) {
		t.Errorf("chunk missing source event ids: %v", chunk.Metadata)
	}
	if chunk.Metadata["retention_days"] == "" {
		t.Error("chunk missing retention_days stamp")
	}
}

func TestCompressSummarizerFailureLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{failFor: map[string]error{"t1": errors.New("model overloaded")}}
	seedInteractions(t, store, "t1", 12)

	s := newSweeper(store, semantic, sum)

	_, err := s.Compress(ctx, "t1", "", 0)
	if !errors.Is(err, core.ErrCompressionFailed) {
		t.Fatalf("err = %v, want ErrCompressionFailed", err)
	}

	interactions, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventUserInteraction})
	if len(interactions) != 12 {
		t.Errorf("%d interactions remain, want all 12", len(interactions))
	}
	checkpoints, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventSystemCheckpoint})
	if len(checkpoints) != 0 {
		t.Errorf("%d checkpoints written on failure, want 0", len(checkpoints))
	}
	if len(semantic.chunks) != 0 {
		t.Errorf("%d chunks written on failure, want 0", len(semantic.chunks))
	}
}

func TestCompressVectorizeFailureStillCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{failErr: errors.New("vector store down")}
	sum := &fakeSummarizer{}
	seedInteractions(t, store, "t1", 12)

	s := newSweeper(store, semantic, sum)

	result, err := s.Compress(ctx, "t1", "", 0)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !result.VectorizeSkipped {
		t.Error("VectorizeSkipped not set")
	}

	checkpoints, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventSystemCheckpoint})
	if len(checkpoints) != 1 {
		t.Errorf("%d checkpoints, want 1 despite vectorize failure", len(checkpoints))
	}
	interactions, _ := store.Query(ctx, "t1", "", ledger.Query{Type: core.EventUserInteraction})
	if len(interactions) != 0 {
		t.Errorf("%d interactions remain, want 0", len(interactions))
	}
}

// deleteFailStore fails Delete while passing everything else through.
type deleteFailStore struct {
	ledger.EventStore
}

func (d *deleteFailStore) Delete(ctx context.Context, ids []string) error {
	return errors.New("delete timed out")
}

func TestCompressDeleteFailureKeepsCheckpoint(t *testing.T) {
	ctx := context.Background()
	inner := ledger.NewMemStore()
	store := &deleteFailStore{EventStore: inner}
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{}
	seedInteractions(t, inner, "t1", 12)

	s := newSweeper(store, semantic, sum)

	result, err := s.Compress(ctx, "t1", "", 0)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !result.DeleteFailed {
		t.Error("DeleteFailed not set")
	}

	// Accepted redundancy: sources remain alongside the checkpoint.
	checkpoints, _ := inner.Query(ctx, "t1", "", ledger.Query{Type: core.EventSystemCheckpoint})
	if len(checkpoints) != 1 {
		t.Errorf("%d checkpoints, want 1", len(checkpoints))
	}
	interactions, _ := inner.Query(ctx, "t1", "", ledger.Query{Type: core.EventUserInteraction})
	if len(interactions) != 12 {
		t.Errorf("%d interactions, want 12 still present", len(interactions))
	}
}

func TestSweepAllIsolatesTenantFailures(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{failFor: map[string]error{"bad": errors.New("outage")}}
	seedInteractions(t, store, "bad", 12)
	seedInteractions(t, store, "good", 12)
	seedInteractions(t, store, "small", 3)

	s := newSweeper(store, semantic, sum)

	stats, err := s.SweepAll(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Total != 3 || stats.Successful != 1 || stats.Failed != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 3/1/1/1", stats)
	}

	// The good tenant was compacted despite the bad one's outage.
	goodLeft, _ := store.Query(ctx, "good", "", ledger.Query{Type: core.EventUserInteraction})
	if len(goodLeft) != 0 {
		t.Errorf("good tenant has %d interactions left, want 0", len(goodLeft))
	}
	badLeft, _ := store.Query(ctx, "bad", "", ledger.Query{Type: core.EventUserInteraction})
	if len(badLeft) != 12 {
		t.Errorf("bad tenant has %d interactions left, want 12 untouched", len(badLeft))
	}
}

func TestCompressSerializedPerTenant(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{
		blocking: make(chan struct{}),
		entered:  make(chan struct{}),
	}
	seedInteractions(t, store, "t1", 12)

	s := newSweeper(store, semantic, sum)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Compress(ctx, "t1", "", 0)
		errCh <- err
	}()

	<-sum.entered // first compaction is mid-summarize, holding the marker

	_, err := s.Compress(ctx, "t1", "", 0)
	if err == nil || !strings.Contains(err.Error(), "in progress") {
		t.Errorf("concurrent compress err = %v, want in-progress rejection", err)
	}

	close(sum.blocking)
	if err := <-errCh; err != nil {
		t.Fatalf("first compress: %v", err)
	}

	// Marker released: a fresh backlog compacts fine.
	seedInteractions(t, store, "t1", 12)
	sum.mu.Lock()
	sum.blocking = nil
	sum.mu.Unlock()
	if _, err := s.Compress(ctx, "t1", "", 0); err != nil {
		t.Errorf("compress after unlock: %v", err)
	}
}

func TestCompressInvalidatesProjectorCache(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{}
	seedInteractions(t, store, "t1", 12)

	cache := &miniCache{entries: map[string][]byte{}}
	projector := state.NewProjector(store, cache)
	s := newSweeper(store, semantic, sum, sweeper.WithProjector(projector))

	if _, err := projector.GetLatestState(ctx, "t1", ""); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if _, ok := cache.entries[state.CacheKey("t1", "")]; !ok {
		t.Fatal("cache not primed")
	}

	if _, err := s.Compress(ctx, "t1", "", 0); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if _, ok := cache.entries[state.CacheKey("t1", "")]; ok {
		t.Error("cache entry survived compaction")
	}

	// A fresh projection still carries the pre-compaction count.
	after, err := projector.GetLatestState(ctx, "t1", "")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if after.Telemetry.TotalInteractions != 12 {
		t.Errorf("TotalInteractions = %d, want 12 preserved across sweep", after.Telemetry.TotalInteractions)
	}
}

func TestRunnerSweepsAndStops(t *testing.T) {
	store := ledger.NewMemStore()
	semantic := &fakeSemanticStore{}
	sum := &fakeSummarizer{}
	seedInteractions(t, store, "t1", 12)

	s := newSweeper(store, semantic, sum)
	runner := sweeper.NewRunner(s, 10*time.Millisecond)
	runner.Start()

	deadline := time.After(2 * time.Second)
	for sum.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("runner never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}

	runner.Stop() // blocks until the loop exits; must not hang

	checkpoints, _ := store.Query(context.Background(), "t1", "", ledger.Query{Type: core.EventSystemCheckpoint})
	if len(checkpoints) != 1 {
		t.Errorf("%d checkpoints after runner cycle, want 1", len(checkpoints))
	}
}

type miniCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (c *miniCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *miniCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *miniCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
