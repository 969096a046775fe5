package services

import (
	"context"
	"math"
	"sort"
	"time"

	"document-chunk-index/config"
	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// CosineRetrievalEngine ranks stored chunks against a query embedding by
// cosine similarity over one selected embedding type. It is stateless and
// read-only; ranking never mutates stored scores.
type CosineRetrievalEngine struct {
	store   EmbeddingStore
	client  EmbeddingClient
	model   string
	cfg     config.RetrievalConfig
	logger  Logger
	metrics *Metrics
}

// NewCosineRetrievalEngine creates a retrieval engine. client may be nil
// when callers always supply a precomputed query embedding.
func NewCosineRetrievalEngine(store EmbeddingStore, client EmbeddingClient, model string, cfg config.RetrievalConfig, logger Logger, metrics *Metrics) *CosineRetrievalEngine {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &CosineRetrievalEngine{
		store:   store,
		client:  client,
		model:   model,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Search implements RetrievalEngine. A request must carry either a query
// embedding or query text (embedded on the fly). Zero matches is an empty
// success, not an error.
func (e *CosineRetrievalEngine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	started := time.Now()

	if req == nil {
		return nil, errors.NewValidationError(errors.ErrCodeMissingField, "search request is required", nil)
	}
	if !req.EmbeddingType.IsValid() {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownEmbedding, "unknown embedding type: "+string(req.EmbeddingType), nil)
	}

	threshold := req.SimilarityThreshold
	if threshold < 0 || threshold > 1 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRange, "similarity threshold must be in [0,1]", nil)
	}
	if threshold == 0 {
		threshold = e.cfg.DefaultThreshold
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = e.cfg.DefaultMaxResults
	}

	query := req.QueryEmbedding
	if len(query) == 0 {
		if req.Query == "" {
			return nil, errors.NewValidationError(errors.ErrCodeMissingField, "query text or query embedding is required", nil)
		}
		if e.client == nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "no embedding client configured for text queries", nil)
		}
		vec, err := e.client.Embed(ctx, req.Query, e.model)
		if err != nil {
			return nil, err
		}
		query = vec
	}

	// Quality weighting re-ranks after the similarity cut. The store
	// orders candidates by raw similarity, and a weighted score never
	// exceeds the raw similarity, so the window is wide enough exactly
	// when the limit-th weighted score beats the lowest similarity
	// fetched; widen until that holds or the store runs dry.
	fetchLimit := limit * 4
	var (
		candidates []models.SearchResult
		err        error
	)
	for {
		candidates, err = e.store.SearchByVector(ctx, query, req.EmbeddingType, threshold, fetchLimit)
		if err != nil {
			return nil, err
		}

		minSimilarity := 1.0
		for i := range candidates {
			candidates[i].Score = candidates[i].Similarity
			if req.QualityWeighted {
				candidates[i].Score = candidates[i].Similarity * candidates[i].Chunk.QualityScore
			}
			if candidates[i].Similarity < minSimilarity {
				minSimilarity = candidates[i].Similarity
			}
		}
		sortResults(candidates)

		if !req.QualityWeighted || len(candidates) < fetchLimit {
			break
		}
		if len(candidates) >= limit && candidates[limit-1].Score >= minSimilarity {
			break
		}
		fetchLimit *= 4
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	elapsed := time.Since(started)
	if e.metrics != nil {
		e.metrics.SearchRequests.Inc()
		e.metrics.SearchLatency.Observe(elapsed.Seconds())
	}
	e.logger.Debug("search complete",
		String("embedding_type", string(req.EmbeddingType)),
		Int("results", len(candidates)),
		Duration("duration", elapsed))

	return &models.SearchResponse{
		Results:    candidates,
		TotalCount: len(candidates),
		SearchTime: elapsed,
	}, nil
}

// sortResults orders by ranking score descending, then quality descending,
// then coarser hierarchy level first, then chunk ID for determinism
func sortResults(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.QualityScore != b.Chunk.QualityScore {
			return a.Chunk.QualityScore > b.Chunk.QualityScore
		}
		if a.Chunk.HierarchyLevel != b.Chunk.HierarchyLevel {
			return a.Chunk.HierarchyLevel < b.Chunk.HierarchyLevel
		}
		return a.Chunk.ChunkID < b.Chunk.ChunkID
	})
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or a zero vector yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
