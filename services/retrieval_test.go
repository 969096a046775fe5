package services

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/config"
	"document-chunk-index/models"
)

// fakeEmbeddingStore returns canned results, honoring the store contract:
// ordered by similarity descending, at most limit rows
type fakeEmbeddingStore struct {
	results []models.SearchResult
}

func (s *fakeEmbeddingStore) PutEmbedding(ctx context.Context, chunkID string, embedding models.Embedding) error {
	return nil
}

func (s *fakeEmbeddingStore) SearchByVector(ctx context.Context, query []float64, embType models.EmbeddingType, threshold float64, limit int) ([]models.SearchResult, error) {
	var out []models.SearchResult
	for _, r := range s.results {
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func searchHit(chunkID string, similarity, quality float64, level int) models.SearchResult {
	return models.SearchResult{
		Chunk: &models.Chunk{
			ChunkID:        chunkID,
			QualityScore:   quality,
			HierarchyLevel: level,
		},
		Similarity: similarity,
	}
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{DefaultMaxResults: 10, DefaultThreshold: 0.5}
}

func TestSearch_QualityWeightedOrdering(t *testing.T) {
	store := &fakeEmbeddingStore{results: []models.SearchResult{
		searchHit("low-quality", 0.91, 0.6, 1),
		searchHit("high-quality", 0.91, 0.9, 1),
		searchHit("lower-similarity", 0.80, 0.95, 1),
	}}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding:      []float64{1, 0, 0},
		EmbeddingType:       models.EmbeddingTypeContent,
		SimilarityThreshold: 0.5,
		MaxResults:          10,
		QualityWeighted:     true,
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 3)

	// weighted scores: 0.91*0.9=0.819, 0.80*0.95=0.76, 0.91*0.6=0.546
	assert.Equal(t, "high-quality", response.Results[0].Chunk.ChunkID)
	assert.Equal(t, "lower-similarity", response.Results[1].Chunk.ChunkID)
	assert.Equal(t, "low-quality", response.Results[2].Chunk.ChunkID)
	assert.InDelta(t, 0.819, response.Results[0].Score, 1e-9)
}

func TestSearch_QualityWeightedWidensCandidateWindow(t *testing.T) {
	// eight mediocre chunks outrank the best-weighted one on raw
	// similarity, keeping it outside the initial candidate fetch for
	// limit 1; re-ranking has to widen the window to find it
	results := make([]models.SearchResult, 0, 9)
	for i := 0; i < 8; i++ {
		results = append(results, searchHit(fmt.Sprintf("filler-%d", i), 0.9-float64(i)*0.01, 0.1, 1))
	}
	results = append(results, searchHit("best-weighted", 0.6, 1.0, 1))
	store := &fakeEmbeddingStore{results: results}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding:  []float64{1},
		EmbeddingType:   models.EmbeddingTypeContent,
		MaxResults:      1,
		QualityWeighted: true,
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "best-weighted", response.Results[0].Chunk.ChunkID)
	assert.InDelta(t, 0.6, response.Results[0].Score, 1e-9)
}

func TestSearch_RejectsNegativeThreshold(t *testing.T) {
	store := &fakeEmbeddingStore{results: []models.SearchResult{
		searchHit("a", 0.9, 0.9, 1),
	}}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	// a negative threshold is a caller error, never coerced to the default
	_, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding:      []float64{1},
		EmbeddingType:       models.EmbeddingTypeContent,
		SimilarityThreshold: -0.2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity threshold")

	_, err = engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding:      []float64{1},
		EmbeddingType:       models.EmbeddingTypeContent,
		SimilarityThreshold: 1.3,
	})
	assert.Error(t, err)
}

func TestSearch_RawSimilarityWithQualityTieBreak(t *testing.T) {
	store := &fakeEmbeddingStore{results: []models.SearchResult{
		searchHit("tied-low-quality", 0.91, 0.6, 1),
		searchHit("tied-high-quality", 0.91, 0.9, 1),
		searchHit("lower-similarity", 0.80, 0.95, 1),
	}}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding: []float64{1, 0, 0},
		EmbeddingType:  models.EmbeddingTypeContent,
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 3)

	assert.Equal(t, "tied-high-quality", response.Results[0].Chunk.ChunkID)
	assert.Equal(t, "tied-low-quality", response.Results[1].Chunk.ChunkID)
	assert.Equal(t, "lower-similarity", response.Results[2].Chunk.ChunkID)
}

func TestSearch_CoarserLevelBreaksFullTies(t *testing.T) {
	store := &fakeEmbeddingStore{results: []models.SearchResult{
		searchHit("finer", 0.9, 0.8, 3),
		searchHit("coarser", 0.9, 0.8, 1),
	}}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding: []float64{1},
		EmbeddingType:  models.EmbeddingTypeContent,
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 2)
	assert.Equal(t, "coarser", response.Results[0].Chunk.ChunkID)
}

func TestSearch_ZeroMatchesIsEmptySuccess(t *testing.T) {
	engine := NewCosineRetrievalEngine(&fakeEmbeddingStore{}, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding: []float64{1, 0},
		EmbeddingType:  models.EmbeddingTypeContent,
	})
	require.NoError(t, err)
	assert.Empty(t, response.Results)
	assert.Equal(t, 0, response.TotalCount)
}

func TestSearch_RejectsInvalidRequests(t *testing.T) {
	engine := NewCosineRetrievalEngine(&fakeEmbeddingStore{}, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	_, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding: []float64{1},
		EmbeddingType:  "unknown",
	})
	assert.Error(t, err)

	_, err = engine.Search(context.Background(), &models.SearchRequest{
		EmbeddingType: models.EmbeddingTypeContent,
	})
	assert.Error(t, err, "neither query text nor embedding supplied")
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	store := &fakeEmbeddingStore{results: []models.SearchResult{
		searchHit("a", 0.9, 0.9, 1),
		searchHit("b", 0.8, 0.9, 1),
		searchHit("c", 0.7, 0.9, 1),
	}}
	engine := NewCosineRetrievalEngine(store, nil, "", testRetrievalConfig(), NewDefaultLogger(), nil)

	response, err := engine.Search(context.Background(), &models.SearchRequest{
		QueryEmbedding: []float64{1},
		EmbeddingType:  models.EmbeddingTypeContent,
		MaxResults:     2,
	})
	require.NoError(t, err)
	assert.Len(t, response.Results, 2)
	assert.Equal(t, "a", response.Results[0].Chunk.ChunkID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}
