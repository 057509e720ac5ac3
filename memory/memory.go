package memory

import (
	"context"

	"github.com/becomeliminal/strata-go-sdk/core"
)

// SemanticStore is the vector storage backend for the episodic and
// foundation tiers. Implementations: ChromemStore (local SDK),
// PgVectorStore (production).
type SemanticStore interface {
	// Store saves a chunk. The chunk must have its embedding set when
	// the tier requires similarity search.
	Store(ctx context.Context, chunk *core.MemoryChunk) error

	// Search returns chunks by vector similarity, highest first.
	// filters narrows on metadata (e.g. "type": "foundation"); limit
	// caps the result count.
	Search(ctx context.Context, tenantID string, embedding []float32, filters map[string]string, limit int) ([]core.MemoryChunk, error)

	// Delete removes a chunk permanently.
	Delete(ctx context.Context, tenantID, chunkID string) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: MockEmbedder (testing), ONNXEmbedder (local SDK).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
