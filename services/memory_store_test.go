package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/models"
)

func putEmbedding(t *testing.T, store *MemoryStore, chunkID string, vector []float64, status models.ValidationStatus) {
	t.Helper()
	require.NoError(t, store.PutEmbedding(context.Background(), chunkID, models.Embedding{
		Type:           models.EmbeddingTypeContent,
		Vector:         vector,
		Dimensionality: len(vector),
		Status:         status,
		GeneratedAt:    time.Now(),
	}))
}

func TestMemoryStore_SearchByVector(t *testing.T) {
	store := NewMemoryStore()
	a := testChunk("a", "doc-1", nil, 0)
	b := testChunk("b", "doc-1", nil, 1)
	c := testChunk("c", "doc-1", nil, 2)
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{a, b, c}))

	putEmbedding(t, store, "a", []float64{1, 0, 0}, models.ValidationStatusValid)
	putEmbedding(t, store, "b", []float64{0.9, 0.1, 0}, models.ValidationStatusValid)
	putEmbedding(t, store, "c", []float64{0, 1, 0}, models.ValidationStatusValid)

	results, err := store.SearchByVector(context.Background(), []float64{1, 0, 0}, models.EmbeddingTypeContent, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ChunkID)
	assert.Equal(t, "b", results[1].Chunk.ChunkID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestMemoryStore_SearchExcludesRejectedVectors(t *testing.T) {
	store := NewMemoryStore()
	a := testChunk("a", "doc-1", nil, 0)
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{a}))
	putEmbedding(t, store, "a", []float64{1, 0, 0}, models.ValidationStatusRejected)

	results, err := store.SearchByVector(context.Background(), []float64{1, 0, 0}, models.EmbeddingTypeContent, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_UpsertKeyedByNode(t *testing.T) {
	store := NewMemoryStore()
	original := testChunk("id-1", "doc-1", nil, 0)
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{original}))

	// same node under a fresh chunk ID replaces the old row
	replacement := testChunk("id-2", "doc-1", nil, 0)
	replacement.NodeID = original.NodeID
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{replacement}))

	chunks, err := store.ListChunksByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "id-2", chunks[0].ChunkID)

	_, err = store.GetChunk(context.Background(), "id-1")
	assert.Error(t, err)
}

func TestMemoryStore_CopiesChunksOnWriteAndRead(t *testing.T) {
	store := NewMemoryStore()
	original := testChunk("a", "doc-1", nil, 0)
	original.HierarchyPath = []string{"a"}
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{original}))

	// mutating the caller's chunk after the upsert must not leak into the
	// stored row
	original.Content = "rewritten"
	original.HierarchyPath[0] = "mangled"
	original.Embeddings = map[models.EmbeddingType]models.Embedding{
		models.EmbeddingTypeContent: {Type: models.EmbeddingTypeContent, Vector: []float64{1}},
	}

	stored, err := store.GetChunk(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "content of a", stored.Content)
	assert.Equal(t, []string{"a"}, stored.HierarchyPath)
	assert.Empty(t, stored.Embeddings)

	// mutating a read result must not leak back either
	stored.QualityScore = 0.99
	again, err := store.GetChunk(context.Background(), "a")
	require.NoError(t, err)
	assert.Zero(t, again.QualityScore)
}

func TestMemoryStore_ConcurrentIngestAndSearch(t *testing.T) {
	store := NewMemoryStore()
	pipeline := newTestPipeline(store)

	_, err := pipeline.Ingest(context.Background(), &models.IngestRequest{DocumentID: "doc-1", Text: ingestText})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			_, err := pipeline.Ingest(context.Background(), &models.IngestRequest{DocumentID: "doc-1", Text: ingestText})
			assert.NoError(t, err)
		}
	}()

	query := DeterministicVector("concurrent search query vector input", testDimensions)
	for i := 0; i < 200; i++ {
		_, err := store.SearchByVector(context.Background(), query, models.EmbeddingTypeContent, 0, 10)
		assert.NoError(t, err)
	}
	wg.Wait()
}

func TestMemoryStore_PruneChunks(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	parent, childA, childB := seedHierarchy(t, store)
	_, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA, childB})
	require.NoError(t, err)

	pruned, err := store.PruneChunks(context.Background(), "doc-1", []string{parent.NodeID, childA.NodeID})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = store.GetChunk(context.Background(), childB.ChunkID)
	assert.Error(t, err)

	edges, err := store.ListRelationships(context.Background(), childB.ChunkID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	remaining, err := store.ListChunksByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestMemoryStore_RecomputeAggregates(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.PutDocument(context.Background(), &models.Document{DocumentID: "doc-1"}))

	a := testChunk("a", "doc-1", nil, 0)
	a.TokenCount, a.QualityScore = 10, 0.8
	b := testChunk("b", "doc-1", nil, 1)
	b.TokenCount, b.QualityScore = 30, 0.4
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{a, b}))

	doc, err := store.RecomputeAggregates(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Equal(t, 40, doc.TotalTokens)
	assert.InDelta(t, 0.6, doc.AverageQuality, 1e-9)
}
