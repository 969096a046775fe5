package services

import (
	"context"

	"document-chunk-index/models"
)

// ChunkStore persists chunks. UpsertChunks is keyed by (document_id,
// node_id) so re-ingesting a document with the same configuration updates
// rows in place instead of duplicating them.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error)
	// PruneChunks deletes the document's chunks whose node IDs are absent
	// from keep, cascading edges and embeddings, and reports how many rows
	// went away. Re-ingesting shorter or restructured text calls this with
	// the fresh node ID set.
	PruneChunks(ctx context.Context, documentID string, keep []string) (int, error)
	// DeleteChunk removes the chunk and cascade-deletes every relationship
	// edge referencing it, in one transaction
	DeleteChunk(ctx context.Context, chunkID string) error
}

// RelationshipStore persists the edge table derived from parent links
type RelationshipStore interface {
	// ApplyParentChange applies the chunk's parent_chunk_id write and the
	// corresponding edge deletes/inserts as a single atomic unit
	ApplyParentChange(ctx context.Context, change models.ParentChange) error
	// ReplaceSiblingEdges atomically replaces all sibling edges among the
	// children of one parent
	ReplaceSiblingEdges(ctx context.Context, parentKey string, edges []models.Relationship) error
	ListRelationships(ctx context.Context, chunkID string) ([]models.Relationship, error)
	ListRelationshipsByType(ctx context.Context, chunkID string, relType models.RelationshipType) ([]models.Relationship, error)
}

// EmbeddingStore persists per-(chunk, type) vectors with quality records
// and answers approximate-nearest-neighbor queries
type EmbeddingStore interface {
	PutEmbedding(ctx context.Context, chunkID string, embedding models.Embedding) error
	// SearchByVector returns chunks whose stored vector of the given type
	// has cosine similarity >= threshold, ordered by similarity descending,
	// at most limit rows
	SearchByVector(ctx context.Context, query []float64, embType models.EmbeddingType, threshold float64, limit int) ([]models.SearchResult, error)
}

// DocumentStore persists documents and recomputes their derived aggregates
type DocumentStore interface {
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	ListDocumentIDs(ctx context.Context) ([]string, error)
	// RecomputeAggregates rereads the authoritative chunk set and rewrites
	// chunk_count, total_tokens and average_quality
	RecomputeAggregates(ctx context.Context, documentID string) (*models.Document, error)
	SetDocumentStatus(ctx context.Context, documentID string, status models.DocumentStatus) error
}

// Store combines every persistence concern the pipeline needs
type Store interface {
	ChunkStore
	RelationshipStore
	EmbeddingStore
	DocumentStore
	HealthCheck(ctx context.Context) error
}

// EmbeddingClient is the remote embedding function: text in, fixed-length
// vector out. Implementations own retry and rate limiting; callers own
// dimensionality validation.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string, model string) ([]float64, error)
}

// Chunker turns raw document text into a chunk tree
type Chunker interface {
	Chunk(documentID, text string) ([]*models.Chunk, error)
}

// QualityScorer computes quality and coherence scores for a chunk
type QualityScorer interface {
	Score(chunk *models.Chunk) models.QualityResult
}

// RelationshipManager keeps the edge table consistent with parent links
type RelationshipManager interface {
	SetParent(ctx context.Context, chunk *models.Chunk, newParentID *string) error
	RebuildSiblingEdges(ctx context.Context, documentID string) (int, error)
	SyncDocument(ctx context.Context, chunks []*models.Chunk) (int, error)
}

// MultiScaleEmbedder generates the per-chunk embedding set
type MultiScaleEmbedder interface {
	EmbedBatch(ctx context.Context, chunks []*models.Chunk) *models.EmbeddingBatchResult
}

// RetrievalEngine ranks chunks against a query embedding
type RetrievalEngine interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// ConsistencyChecker validates hierarchy invariants without repairing them
type ConsistencyChecker interface {
	CheckDocument(ctx context.Context, documentID string) ([]models.Finding, error)
	CheckAll(ctx context.Context) (*models.ConsistencyReport, error)
}
