package core

import (
	"time"

	"github.com/google/uuid"
)

// Memory tier type tags carried in MemoryChunk.Type.
const (
	ChunkWorking    = "working"
	ChunkEpisodic   = "episodic"
	ChunkFoundation = "foundation"
	ChunkCheckpoint = "strategic_checkpoint"
)

// MemoryChunk is one long-term memory unit. Chunks are never updated in
// place: corrections are new chunks, and pruning happens only through
// explicit tier eviction or the external retention janitor.
type MemoryChunk struct {
	ID        string
	TenantID  string
	Type      string // one of the Chunk* tags
	Content   string
	Embedding []float32 // optional, tier-dependent
	Metadata  map[string]string
	CreatedAt time.Time

	// Similarity is populated on search results only.
	Similarity float32
}

// NewMemoryChunk mints a chunk with a fresh id and timestamp.
func NewMemoryChunk(tenantID, chunkType, content string, metadata map[string]string) *MemoryChunk {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &MemoryChunk{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Type:      chunkType,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
