package memory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/policy"
)

// Rough chars-per-token heuristic for applying token budgets to text.
const charsPerToken = 4

// Tiers is the facade over the three memory tiers. Construct one per
// process and share it; all methods are safe for concurrent use.
type Tiers struct {
	store    SemanticStore
	embedder Embedder

	mu      sync.Mutex
	working map[string]*workingBuffer

	clock func() time.Time
}

// TiersOption configures the facade.
type TiersOption func(*Tiers)

// WithClock overrides the time source, for TTL tests.
func WithClock(clock func() time.Time) TiersOption {
	return func(t *Tiers) {
		t.clock = clock
	}
}

// NewTiers creates the facade over a semantic store and embedder.
func NewTiers(store SemanticStore, embedder Embedder, opts ...TiersOption) *Tiers {
	t := &Tiers{
		store:    store,
		embedder: embedder,
		working:  make(map[string]*workingBuffer),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// workingItem is one entry in a working-tier buffer.
type workingItem struct {
	content   string
	expiresAt time.Time
}

type workingBuffer struct {
	items []workingItem
}

func workingKey(tenantID, key string) string {
	return tenantID + "\x00" + key
}

// RememberWorking appends content to the tenant's working buffer for
// key. Capacity, TTL, and the token budget come from the resolved
// retention rule.
func (t *Tiers) RememberWorking(tenantID, key, content string, tenantImp, agentImp core.Importance) {
	rule := policy.Resolve(tenantImp, agentImp)
	content = truncate(content, rule.MaxTokens*charsPerToken)
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	buf, ok := t.working[workingKey(tenantID, key)]
	if !ok {
		buf = &workingBuffer{}
		t.working[workingKey(tenantID, key)] = buf
	}

	buf.items = append(buf.items, workingItem{
		content:   content,
		expiresAt: now.Add(time.Duration(rule.TTLSeconds) * time.Second),
	})

	// Drop expired entries, then trim oldest past capacity.
	buf.items = pruneExpired(buf.items, now)
	if len(buf.items) > rule.MaxItems {
		buf.items = buf.items[len(buf.items)-rule.MaxItems:]
	}
}

// RecallWorking returns the unexpired working entries for tenant+key,
// oldest first, at most the resolved rule's capacity.
func (t *Tiers) RecallWorking(tenantID, key string, tenantImp, agentImp core.Importance) []string {
	rule := policy.Resolve(tenantImp, agentImp)
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	buf, ok := t.working[workingKey(tenantID, key)]
	if !ok {
		return nil
	}
	buf.items = pruneExpired(buf.items, now)

	items := buf.items
	if len(items) > rule.MaxItems {
		items = items[len(items)-rule.MaxItems:]
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.content)
	}
	return out
}

func pruneExpired(items []workingItem, now time.Time) []workingItem {
	kept := items[:0]
	for _, item := range items {
		if item.expiresAt.After(now) {
			kept = append(kept, item)
		}
	}
	return kept
}

// RememberEpisode embeds and stores one interaction memory.
func (t *Tiers) RememberEpisode(ctx context.Context, tenantID, content string, metadata map[string]string, tenantImp, agentImp core.Importance) (*core.MemoryChunk, error) {
	rule := policy.Resolve(tenantImp, agentImp)
	chunk := core.NewMemoryChunk(tenantID, core.ChunkEpisodic, truncate(content, rule.MaxTokens*charsPerToken), metadata)
	stampRetention(chunk, rule)

	embedding, err := t.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return nil, fmt.Errorf("embed episode: %w", err)
	}
	chunk.Embedding = embedding

	if err := t.store.Store(ctx, chunk); err != nil {
		return nil, fmt.Errorf("store episode: %w", err)
	}
	return chunk, nil
}

// RecallEpisodes returns the episodic memories most similar to query,
// at most the resolved rule's recall limit.
func (t *Tiers) RecallEpisodes(ctx context.Context, tenantID, query string, tenantImp, agentImp core.Importance) ([]core.MemoryChunk, error) {
	rule := policy.Resolve(tenantImp, agentImp)

	embedding, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := t.store.Search(ctx, tenantID, embedding,
		map[string]string{"type": core.ChunkEpisodic}, rule.RecallLimit)
	if err != nil {
		return nil, fmt.Errorf("search episodes: %w", err)
	}
	log.Printf("[TIERS] Recalled %d episodes for tenant %s", len(chunks), tenantID)
	return chunks, nil
}

// RememberFoundation stores a long-lived fact. The write stamps
// retention_days from the resolved rule so the external janitor can
// expire it later.
func (t *Tiers) RememberFoundation(ctx context.Context, tenantID, content string, metadata map[string]string, tenantImp, agentImp core.Importance) (*core.MemoryChunk, error) {
	rule := policy.Resolve(tenantImp, agentImp)
	chunk := core.NewMemoryChunk(tenantID, core.ChunkFoundation, truncate(content, rule.MaxTokens*charsPerToken), metadata)
	stampRetention(chunk, rule)

	embedding, err := t.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return nil, fmt.Errorf("embed foundation fact: %w", err)
	}
	chunk.Embedding = embedding

	if err := t.store.Store(ctx, chunk); err != nil {
		return nil, fmt.Errorf("store foundation fact: %w", err)
	}
	return chunk, nil
}

// RecallFoundation returns foundation facts similar to query, filtered
// by the type=foundation tag and bounded by the recall limit.
func (t *Tiers) RecallFoundation(ctx context.Context, tenantID, query string, tenantImp, agentImp core.Importance) ([]core.MemoryChunk, error) {
	rule := policy.Resolve(tenantImp, agentImp)

	embedding, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := t.store.Search(ctx, tenantID, embedding,
		map[string]string{"type": core.ChunkFoundation}, rule.RecallLimit)
	if err != nil {
		return nil, fmt.Errorf("search foundation facts: %w", err)
	}
	return chunks, nil
}

// StoreCheckpoint vectorizes a compaction summary into long-term
// memory, tagged with the compacted source event ids. Called by the
// sweeper; failures there are non-fatal to the compaction itself.
func (t *Tiers) StoreCheckpoint(ctx context.Context, tenantID, summary string, takeaways, sourceEventIDs []string, tenantImp, agentImp core.Importance) (*core.MemoryChunk, error) {
	rule := policy.Resolve(tenantImp, agentImp)

	content := summary
	if len(takeaways) > 0 {
		content += "\n" + strings.Join(takeaways, "\n")
	}

	chunk := core.NewMemoryChunk(tenantID, core.ChunkCheckpoint, content, map[string]string{
		"source_event_ids": strings.Join(sourceEventIDs, ","),
	})
	stampRetention(chunk, rule)

	embedding, err := t.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return nil, fmt.Errorf("embed checkpoint: %w", err)
	}
	chunk.Embedding = embedding

	if err := t.store.Store(ctx, chunk); err != nil {
		return nil, fmt.Errorf("store checkpoint: %w", err)
	}
	return chunk, nil
}

func stampRetention(chunk *core.MemoryChunk, rule core.RetentionRule) {
	chunk.Metadata["retention_days"] = strconv.Itoa(rule.RetentionDays)
}

// truncate trims s to maxLen, adding "..." if trimmed.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
