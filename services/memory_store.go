package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// MemoryStore is an in-memory Store implementation: brute-force cosine
// search, map-backed tables, coarse lock. It backs tests and standalone
// runs without Postgres; semantics mirror the SQL repositories. Chunks
// and documents are copied on the way in and out, so stored state is
// only ever mutated under the store lock, like rows behind a pool.
type MemoryStore struct {
	mu sync.RWMutex

	chunks    map[string]*models.Chunk
	nodeIndex map[string]string   // documentID+"/"+nodeID -> chunkID
	docOrder  map[string][]string // documentID -> chunkIDs in upsert order
	edges     map[string]models.Relationship
	// siblingKeys tracks which edge keys each ReplaceSiblingEdges call
	// owns, so a rebuild can clear its previous output
	siblingKeys map[string][]string
	documents   map[string]*models.Document
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:      make(map[string]*models.Chunk),
		nodeIndex:   make(map[string]string),
		docOrder:    make(map[string][]string),
		edges:       make(map[string]models.Relationship),
		siblingKeys: make(map[string][]string),
		documents:   make(map[string]*models.Document),
	}
}

// cloneChunk deep-copies a chunk. Callers keep mutating their chunk after
// an upsert (the pipeline attaches embeddings concurrently), so sharing
// the pointer with the store would race with readers.
func cloneChunk(chunk *models.Chunk) *models.Chunk {
	c := *chunk
	if chunk.HierarchyPath != nil {
		c.HierarchyPath = append([]string(nil), chunk.HierarchyPath...)
	}
	if chunk.ParentChunkID != nil {
		parentID := *chunk.ParentChunkID
		c.ParentChunkID = &parentID
	}
	if chunk.Statistics != nil {
		c.Statistics = make(map[string]interface{}, len(chunk.Statistics))
		for k, v := range chunk.Statistics {
			c.Statistics[k] = v
		}
	}
	if chunk.Embeddings != nil {
		c.Embeddings = make(map[models.EmbeddingType]models.Embedding, len(chunk.Embeddings))
		for typ, emb := range chunk.Embeddings {
			emb.Vector = append([]float64(nil), emb.Vector...)
			c.Embeddings[typ] = emb
		}
	}
	return &c
}

func cloneDocument(doc *models.Document) *models.Document {
	d := *doc
	return &d
}

// UpsertChunks implements ChunkStore
func (s *MemoryStore) UpsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		nodeKey := chunk.DocumentID + "/" + chunk.NodeID
		if existingID, ok := s.nodeIndex[nodeKey]; ok && existingID != chunk.ChunkID {
			// same node re-ingested under a new ID: replace the old row
			delete(s.chunks, existingID)
			s.removeFromDocOrder(chunk.DocumentID, existingID)
		}
		if _, ok := s.chunks[chunk.ChunkID]; !ok {
			s.docOrder[chunk.DocumentID] = append(s.docOrder[chunk.DocumentID], chunk.ChunkID)
		}
		s.nodeIndex[nodeKey] = chunk.ChunkID
		s.chunks[chunk.ChunkID] = cloneChunk(chunk)
	}
	return nil
}

// GetChunk implements ChunkStore
func (s *MemoryStore) GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+chunkID, nil)
	}
	return cloneChunk(chunk), nil
}

// ListChunksByDocument implements ChunkStore, returning chunks in their
// original document order
func (s *MemoryStore) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Chunk
	for _, chunkID := range s.docOrder[documentID] {
		if chunk, ok := s.chunks[chunkID]; ok {
			out = append(out, cloneChunk(chunk))
		}
	}
	return out, nil
}

// DeleteChunk implements ChunkStore; relationship edges referencing the
// chunk are removed in the same critical section
func (s *MemoryStore) DeleteChunk(ctx context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+chunkID, nil)
	}

	delete(s.chunks, chunkID)
	delete(s.nodeIndex, chunk.DocumentID+"/"+chunk.NodeID)
	s.removeFromDocOrder(chunk.DocumentID, chunkID)

	for key, edge := range s.edges {
		if edge.SourceChunkID == chunkID || edge.TargetChunkID == chunkID {
			delete(s.edges, key)
		}
	}
	return nil
}

// PruneChunks implements ChunkStore: every chunk of the document whose
// node ID is absent from keep is deleted, edges cascading, so a re-ingest
// that produced fewer nodes leaves no strays behind
func (s *MemoryStore) PruneChunks(ctx context.Context, documentID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepSet := make(map[string]struct{}, len(keep))
	for _, nodeID := range keep {
		keepSet[nodeID] = struct{}{}
	}

	pruned := 0
	order := append([]string(nil), s.docOrder[documentID]...)
	for _, chunkID := range order {
		chunk, ok := s.chunks[chunkID]
		if !ok {
			continue
		}
		if _, ok := keepSet[chunk.NodeID]; ok {
			continue
		}
		delete(s.chunks, chunkID)
		delete(s.nodeIndex, documentID+"/"+chunk.NodeID)
		s.removeFromDocOrder(documentID, chunkID)
		for key, edge := range s.edges {
			if edge.SourceChunkID == chunkID || edge.TargetChunkID == chunkID {
				delete(s.edges, key)
			}
		}
		pruned++
	}
	return pruned, nil
}

func (s *MemoryStore) removeFromDocOrder(documentID, chunkID string) {
	order := s.docOrder[documentID]
	for i, id := range order {
		if id == chunkID {
			s.docOrder[documentID] = append(order[:i], order[i+1:]...)
			return
		}
	}
}

// ApplyParentChange implements RelationshipStore. The parent field write
// and the edge mutations are applied under one lock, matching the SQL
// repository's single transaction.
func (s *MemoryStore) ApplyParentChange(ctx context.Context, change models.ParentChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[change.ChunkID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+change.ChunkID, nil)
	}

	chunk.ParentChunkID = change.NewParentID
	for _, edge := range change.DeleteEdges {
		delete(s.edges, edge.Key())
	}
	for _, edge := range change.InsertEdges {
		s.edges[edge.Key()] = edge
	}
	return nil
}

// ReplaceSiblingEdges implements RelationshipStore
func (s *MemoryStore) ReplaceSiblingEdges(ctx context.Context, parentKey string, edges []models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.siblingKeys[parentKey] {
		delete(s.edges, key)
	}

	keys := make([]string, 0, len(edges))
	for _, edge := range edges {
		s.edges[edge.Key()] = edge
		keys = append(keys, edge.Key())
	}
	s.siblingKeys[parentKey] = keys
	return nil
}

// ListRelationships implements RelationshipStore, returning every edge
// that references the chunk as source or target
func (s *MemoryStore) ListRelationships(ctx context.Context, chunkID string) ([]models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Relationship
	for _, edge := range s.edges {
		if edge.SourceChunkID == chunkID || edge.TargetChunkID == chunkID {
			out = append(out, edge)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// ListRelationshipsByType implements RelationshipStore for outgoing edges
// of one type
func (s *MemoryStore) ListRelationshipsByType(ctx context.Context, chunkID string, relType models.RelationshipType) ([]models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Relationship
	for _, edge := range s.edges {
		if edge.SourceChunkID == chunkID && edge.Type == relType {
			out = append(out, edge)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// PutEmbedding implements EmbeddingStore
func (s *MemoryStore) PutEmbedding(ctx context.Context, chunkID string, embedding models.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[chunkID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+chunkID, nil)
	}
	if chunk.Embeddings == nil {
		chunk.Embeddings = make(map[models.EmbeddingType]models.Embedding)
	}
	embedding.Vector = append([]float64(nil), embedding.Vector...)
	chunk.Embeddings[embedding.Type] = embedding
	return nil
}

// SearchByVector implements EmbeddingStore with a brute-force cosine scan
func (s *MemoryStore) SearchByVector(ctx context.Context, query []float64, embType models.EmbeddingType, threshold float64, limit int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []models.SearchResult
	for _, chunk := range s.chunks {
		emb, ok := chunk.Embeddings[embType]
		if !ok || emb.Status == models.ValidationStatusRejected || len(emb.Vector) != len(query) {
			continue
		}
		similarity := CosineSimilarity(query, emb.Vector)
		if similarity < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Chunk:      cloneChunk(chunk),
			Similarity: similarity,
			Score:      similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PutDocument implements DocumentStore
func (s *MemoryStore) PutDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.DocumentID] = cloneDocument(doc)
	return nil
}

// GetDocument implements DocumentStore
func (s *MemoryStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}
	return cloneDocument(doc), nil
}

// ListDocumentIDs implements DocumentStore
func (s *MemoryStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.documents))
	for id := range s.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RecomputeAggregates implements DocumentStore: chunk count, total tokens
// and average quality are rederived from the stored chunk set, never
// written directly
func (s *MemoryStore) RecomputeAggregates(ctx context.Context, documentID string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}

	count, tokens := 0, 0
	qualitySum := 0.0
	for _, chunkID := range s.docOrder[documentID] {
		chunk, ok := s.chunks[chunkID]
		if !ok {
			continue
		}
		count++
		tokens += chunk.TokenCount
		qualitySum += chunk.QualityScore
	}

	doc.ChunkCount = count
	doc.TotalTokens = tokens
	doc.AverageQuality = 0
	if count > 0 {
		doc.AverageQuality = qualitySum / float64(count)
	}
	doc.UpdatedAt = time.Now()
	return cloneDocument(doc), nil
}

// SetDocumentStatus implements DocumentStore
func (s *MemoryStore) SetDocumentStatus(ctx context.Context, documentID string, status models.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now()
	return nil
}

// HealthCheck implements Store
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}
