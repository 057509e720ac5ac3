// Package memory exposes the tiered memory system over a tenant's
// business context.
//
// Three tiers share one retention policy:
//   - Working: bounded recent-item buffer per tenant+key, in-process,
//     capacity and TTL from the resolved retention rule.
//   - Episodic: similarity-searchable interaction memories in the
//     semantic store; recall depth from the resolved rule.
//   - Foundation: long-lived facts (brand voice, audience truths),
//     tagged type=foundation and stamped with retention_days so an
//     external janitor can expire them.
//
// Architecture:
//   - SemanticStore: vector storage backend (chromem-go locally,
//     pgvector in production)
//   - Embedder: text-to-vector conversion (ONNX locally, API-based in
//     production)
//   - Tiers: orchestrates policy resolution, embedding, and storage
//
// Every read and write resolves a retention rule first; the rule's
// numeric bounds are applied before the underlying store is touched.
package memory
