// Package chromem adapts chromem-go as the semantic store.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/memory"
)

// ChromemStore wraps chromem-go for chunk storage.
// chromem-go is a pure Go, embedded vector database.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // per-tenant collections
	mu          sync.RWMutex
}

// New creates a new chromem-based store.
func New() (*ChromemStore, error) {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for a tenant.
// Each tenant gets its own collection for namespace isolation.
func (s *ChromemStore) getOrCreateCollection(tenantID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[tenantID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, exists := s.collections[tenantID]; exists {
		return col, nil
	}

	col, err := s.db.CreateCollection(
		fmt.Sprintf("tenant_%s", tenantID),
		nil, // no collection metadata
		nil, // no embedding func (we provide embeddings)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[tenantID] = col
	return col, nil
}

// Store saves a chunk with its embedding.
func (s *ChromemStore) Store(ctx context.Context, chunk *core.MemoryChunk) error {
	col, err := s.getOrCreateCollection(chunk.TenantID)
	if err != nil {
		return err
	}

	log.Printf("[CHROMEM] Storing chunk: id=%s, tenant=%s, type=%s",
		chunk.ID, chunk.TenantID, chunk.Type)

	doc := chromem.Document{
		ID:        chunk.ID,
		Content:   chunk.Content,
		Embedding: chunk.Embedding,
		Metadata:  chunkMetadata(chunk),
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Search retrieves chunks by vector similarity, highest first.
func (s *ChromemStore) Search(ctx context.Context, tenantID string, embedding []float32, filters map[string]string, limit int) ([]core.MemoryChunk, error) {
	col, err := s.getOrCreateCollection(tenantID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"tenant_id": tenantID}
	for k, v := range filters {
		where[k] = v
	}

	// chromem-go requires nResults <= collection size; retry with
	// smaller limits until it fits.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil // collection is empty
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	chunks := make([]core.MemoryChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, resultToChunk(tenantID, result))
	}
	return chunks, nil
}

// Delete is unsupported: chromem-go does not expose delete by id, and
// long-term chunks are expired by the external retention janitor via
// their retention_days stamp instead.
func (s *ChromemStore) Delete(ctx context.Context, tenantID, chunkID string) error {
	log.Printf("[CHROMEM] Delete not supported (chromem-go limitation); chunk %s left for the janitor", chunkID)
	return nil
}

// Close releases resources. chromem-go keeps everything in memory,
// nothing to close.
func (s *ChromemStore) Close() error {
	return nil
}

func chunkMetadata(chunk *core.MemoryChunk) map[string]string {
	metadata := map[string]string{
		"type":       chunk.Type,
		"tenant_id":  chunk.TenantID,
		"created_at": chunk.CreatedAt.Format(time.RFC3339),
	}
	for k, v := range chunk.Metadata {
		metadata[k] = v
	}
	return metadata
}

func resultToChunk(tenantID string, result chromem.Result) core.MemoryChunk {
	createdAt, _ := time.Parse(time.RFC3339, result.Metadata["created_at"])

	metadata := make(map[string]string)
	for k, v := range result.Metadata {
		if k != "type" && k != "tenant_id" && k != "created_at" {
			metadata[k] = v
		}
	}

	return core.MemoryChunk{
		ID:         result.ID,
		TenantID:   tenantID,
		Type:       result.Metadata["type"],
		Content:    result.Content,
		Embedding:  result.Embedding,
		Metadata:   metadata,
		CreatedAt:  createdAt,
		Similarity: result.Similarity,
	}
}

// isInsufficientDocsError checks if the error is chromem rejecting a
// result count larger than the collection.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "nResults must be") ||
		strings.Contains(err.Error(), "number of documents")
}

var _ memory.SemanticStore = (*ChromemStore)(nil)
