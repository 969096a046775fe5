package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"document-chunk-index/config"
	"document-chunk-index/models"
)

// MultiScaleEmbeddingGenerator produces up to four embeddings per chunk,
// each from a differently constructed input. The four types are
// independently optional: a failed call leaves that one entry absent and
// never blocks the other types or other chunks.
type MultiScaleEmbeddingGenerator struct {
	client     EmbeddingClient
	dimensions int
	workers    int
	model      string
	logger     Logger
	metrics    *Metrics
}

// NewMultiScaleEmbeddingGenerator creates a new generator
func NewMultiScaleEmbeddingGenerator(client EmbeddingClient, cfg *config.EmbeddingConfig, logger Logger, metrics *Metrics) *MultiScaleEmbeddingGenerator {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &MultiScaleEmbeddingGenerator{
		client:     client,
		dimensions: cfg.Dimensions,
		workers:    workers,
		model:      cfg.Model,
		logger:     logger,
		metrics:    metrics,
	}
}

type embeddingTask struct {
	chunk *models.Chunk
	typ   models.EmbeddingType
	input string
}

// EmbedBatch implements MultiScaleEmbedder. Tasks are (chunk, type) pairs
// run through a bounded worker pool; results are attached to each chunk's
// Embeddings map and summarized, with per-task failures recorded instead
// of propagated.
func (g *MultiScaleEmbeddingGenerator) EmbedBatch(ctx context.Context, chunks []*models.Chunk) *models.EmbeddingBatchResult {
	started := time.Now()
	result := &models.EmbeddingBatchResult{ChunksProcessed: len(chunks)}
	if len(chunks) == 0 {
		return result
	}

	byID := make(map[string]*models.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ChunkID] = chunk
		if chunk.Embeddings == nil {
			chunk.Embeddings = make(map[models.EmbeddingType]models.Embedding)
		}
	}

	var tasks []embeddingTask
	for _, chunk := range chunks {
		for _, typ := range models.AllEmbeddingTypes() {
			tasks = append(tasks, embeddingTask{
				chunk: chunk,
				typ:   typ,
				input: g.buildInput(chunk, typ, byID),
			})
		}
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, g.workers)
	)

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(task embeddingTask) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			embedding, err := g.generateOne(ctx, task)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, models.EmbeddingFailure{
					ChunkID: task.chunk.ChunkID,
					Type:    task.typ,
					Reason:  err.Error(),
				})
				if g.metrics != nil {
					g.metrics.EmbeddingFailures.WithLabelValues(string(task.typ)).Inc()
				}
				return
			}
			task.chunk.Embeddings[task.typ] = *embedding
			result.Generated++
			if g.metrics != nil {
				g.metrics.EmbeddingsGenerated.WithLabelValues(string(task.typ)).Inc()
			}
		}(task)
	}

	wg.Wait()
	result.Duration = time.Since(started)

	g.logger.Info("embedding batch complete",
		Int("chunks", len(chunks)),
		Int("generated", result.Generated),
		Int("failed", result.Failed),
		Duration("duration", result.Duration))
	return result
}

// generateOne calls the embedding function for one (chunk, type) task and
// validates dimensionality. A vector of the wrong length is discarded
// outright; padding or truncating would silently corrupt similarity math.
func (g *MultiScaleEmbeddingGenerator) generateOne(ctx context.Context, task embeddingTask) (*models.Embedding, error) {
	vector, err := g.client.Embed(ctx, task.input, g.model)
	if err != nil {
		return nil, err
	}
	if len(vector) != g.dimensions {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(vector), g.dimensions)
	}

	return &models.Embedding{
		Type:           task.typ,
		Vector:         vector,
		QualityScore:   task.chunk.QualityScore,
		Dimensionality: len(vector),
		Status:         models.ValidationStatusValid,
		Model:          g.model,
		GeneratedAt:    time.Now(),
	}, nil
}

// buildInput constructs the type-specific embedding input
func (g *MultiScaleEmbeddingGenerator) buildInput(chunk *models.Chunk, typ models.EmbeddingType, byID map[string]*models.Chunk) string {
	switch typ {
	case models.EmbeddingTypeContent:
		return chunk.Content

	case models.EmbeddingTypeContextual:
		// content framed by the parent's opening text
		if chunk.ParentChunkID != nil {
			if parent, ok := byID[*chunk.ParentChunkID]; ok {
				return "Context: " + leadingWords(parent.Content, 50) + "\n\n" + chunk.Content
			}
		}
		return chunk.Content

	case models.EmbeddingTypeHierarchical:
		// content prefixed by the ancestor breadcrumb
		breadcrumb := g.breadcrumb(chunk, byID)
		if breadcrumb == "" {
			return chunk.Content
		}
		return breadcrumb + "\n\n" + chunk.Content

	case models.EmbeddingTypeSemantic:
		// content prefixed by its dominant terms
		keywords := TopKeywords(chunk.Content, 10)
		if len(keywords) == 0 {
			return chunk.Content
		}
		return "Key terms: " + strings.Join(keywords, ", ") + "\n\n" + chunk.Content
	}
	return chunk.Content
}

// breadcrumb renders the ancestor chain as "scale: opening words" lines,
// root first, excluding the chunk itself
func (g *MultiScaleEmbeddingGenerator) breadcrumb(chunk *models.Chunk, byID map[string]*models.Chunk) string {
	if len(chunk.HierarchyPath) <= 1 {
		return ""
	}
	var parts []string
	for _, ancestorID := range chunk.HierarchyPath[:len(chunk.HierarchyPath)-1] {
		ancestor, ok := byID[ancestorID]
		if !ok {
			continue
		}
		parts = append(parts, string(ancestor.Scale)+": "+leadingWords(ancestor.Content, 12))
	}
	return strings.Join(parts, " > ")
}

// leadingWords returns the first n whitespace-delimited words of text
func leadingWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
