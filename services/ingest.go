package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// pipelineTag labels chunks with the processing pipeline that produced
// them, so mixed-version corpora stay distinguishable
const pipelineTag = "hierarchical-v1"

// IngestionPipeline orchestrates one document pass:
// chunk -> score -> persist -> relationships -> embed -> aggregates.
// Re-running the pipeline on the same document converges because chunk
// writes are keyed by deterministic node IDs.
type IngestionPipeline struct {
	store         Store
	chunker       Chunker
	scorer        QualityScorer
	relationships RelationshipManager
	embedder      MultiScaleEmbedder
	logger        Logger
	metrics       *Metrics
}

// NewIngestionPipeline creates a new pipeline
func NewIngestionPipeline(store Store, chunker Chunker, scorer QualityScorer, relationships RelationshipManager, embedder MultiScaleEmbedder, logger Logger, metrics *Metrics) *IngestionPipeline {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &IngestionPipeline{
		store:         store,
		chunker:       chunker,
		scorer:        scorer,
		relationships: relationships,
		embedder:      embedder,
		logger:        logger,
		metrics:       metrics,
	}
}

// Ingest processes one document. Embedding failures are summarized in the
// result, not propagated; cancellation aborts between chunks and leaves
// the document in "processing" state for a later re-run.
func (p *IngestionPipeline) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingField, "document text is required", nil)
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}

	started := time.Now()
	result := &models.IngestResult{
		DocumentID: documentID,
		Status:     models.DocumentStatusProcessing,
		StartedAt:  started,
		VersionID:  uuid.New().String(),
	}

	doc := &models.Document{
		DocumentID: documentID,
		Title:      req.Title,
		Status:     models.DocumentStatusProcessing,
		CreatedAt:  started,
		UpdatedAt:  started,
	}
	if existing, err := p.store.GetDocument(ctx, documentID); err == nil {
		doc.CreatedAt = existing.CreatedAt
		if req.Title == "" {
			doc.Title = existing.Title
		}
	}
	if err := p.store.PutDocument(ctx, doc); err != nil {
		return nil, err
	}

	chunks, err := p.chunker.Chunk(documentID, req.Text)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	result.ChunksCreated = len(chunks)

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		chunk.VersionID = result.VersionID
		chunk.PipelineTag = pipelineTag

		score := p.scorer.Score(chunk)
		chunk.QualityScore = score.QualityScore
		chunk.CoherenceScore = score.CoherenceScore
		chunk.Statistics = score.Statistics
		result.ChunksScored++
	}

	if err := p.store.UpsertChunks(ctx, chunks); err != nil {
		return p.fail(ctx, result, err)
	}

	// drop rows left over from an earlier chunking of this document
	nodeIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		nodeIDs = append(nodeIDs, chunk.NodeID)
	}
	pruned, err := p.store.PruneChunks(ctx, documentID, nodeIDs)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	result.ChunksPruned = pruned

	edges, err := p.relationships.SyncDocument(ctx, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return result, err
		}
		return p.fail(ctx, result, err)
	}
	result.EdgesCreated = edges

	if !req.SkipEmbeddings && p.embedder != nil {
		batch := p.embedder.EmbedBatch(ctx, chunks)
		result.Embeddings = batch
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			for _, emb := range chunk.Embeddings {
				if err := p.store.PutEmbedding(ctx, chunk.ChunkID, emb); err != nil {
					return p.fail(ctx, result, err)
				}
			}
		}
	}

	aggregated, err := p.store.RecomputeAggregates(ctx, documentID)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	result.TotalTokens = aggregated.TotalTokens
	result.AverageQuality = aggregated.AverageQuality

	if err := p.store.SetDocumentStatus(ctx, documentID, models.DocumentStatusComplete); err != nil {
		return p.fail(ctx, result, err)
	}
	result.Status = models.DocumentStatusComplete
	result.Duration = time.Since(started)

	if p.metrics != nil {
		p.metrics.DocumentsIngested.Inc()
		p.metrics.ChunksIngested.Add(float64(len(chunks)))
	}
	p.logger.Info("document ingested",
		String("document_id", documentID),
		Int("chunks", result.ChunksCreated),
		Int("edges", result.EdgesCreated),
		Duration("duration", result.Duration))

	return result, nil
}

// fail marks the document failed and returns the original error.
// Cancellation is not a failure: the document stays "processing" so a
// re-run can pick it up.
func (p *IngestionPipeline) fail(ctx context.Context, result *models.IngestResult, cause error) (*models.IngestResult, error) {
	if ctx.Err() == nil {
		if err := p.store.SetDocumentStatus(ctx, result.DocumentID, models.DocumentStatusFailed); err != nil {
			p.logger.Error("failed to mark document failed", err, String("document_id", result.DocumentID))
		}
		result.Status = models.DocumentStatusFailed
	}
	return result, cause
}
