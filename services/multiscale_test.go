package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/config"
	"document-chunk-index/models"
)

const testDimensions = 8

func newTestGenerator(client EmbeddingClient) *MultiScaleEmbeddingGenerator {
	cfg := &config.EmbeddingConfig{Dimensions: testDimensions, Workers: 2, Model: "test-model"}
	return NewMultiScaleEmbeddingGenerator(client, cfg, NewDefaultLogger(), nil)
}

func TestEmbedBatch_AllTypesGenerated(t *testing.T) {
	client := NewMockEmbeddingClient(testDimensions)
	generator := newTestGenerator(client)
	chunk := testChunk("c1", "doc-1", nil, 0)

	result := generator.EmbedBatch(context.Background(), []*models.Chunk{chunk})

	assert.Equal(t, 1, result.ChunksProcessed)
	assert.Equal(t, 4, result.Generated)
	assert.Equal(t, 0, result.Failed)
	for _, typ := range models.AllEmbeddingTypes() {
		emb, ok := chunk.Embeddings[typ]
		require.True(t, ok, "missing %s embedding", typ)
		assert.Len(t, emb.Vector, testDimensions)
		assert.Equal(t, models.ValidationStatusValid, emb.Status)
		assert.Equal(t, testDimensions, emb.Dimensionality)
	}
}

func TestEmbedBatch_PartialFailureIsolated(t *testing.T) {
	client := NewMockEmbeddingClient(testDimensions)
	client.EmbedFunc = func(ctx context.Context, text, model string) ([]float64, error) {
		// the contextual input is framed by parent context
		if strings.HasPrefix(text, "Context:") {
			return nil, errors.New("upstream unavailable")
		}
		return DeterministicVector(text, testDimensions), nil
	}
	generator := newTestGenerator(client)

	parent := testChunk("parent", "doc-1", nil, 0)
	parent.HierarchyPath = []string{"parent"}
	child := testChunk("child", "doc-1", &parent.ChunkID, 0)
	child.HierarchyPath = []string{"parent", "child"}

	result := generator.EmbedBatch(context.Background(), []*models.Chunk{parent, child})

	// only the child's contextual embedding fails
	assert.Equal(t, 7, result.Generated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, child.ChunkID, result.Failures[0].ChunkID)
	assert.Equal(t, models.EmbeddingTypeContextual, result.Failures[0].Type)

	assert.False(t, child.HasEmbedding(models.EmbeddingTypeContextual))
	assert.True(t, child.HasEmbedding(models.EmbeddingTypeContent))
	assert.True(t, child.HasEmbedding(models.EmbeddingTypeHierarchical))
	assert.True(t, child.HasEmbedding(models.EmbeddingTypeSemantic))
}

func TestEmbedBatch_DimensionMismatchDiscarded(t *testing.T) {
	client := NewMockEmbeddingClient(testDimensions)
	client.EmbedFunc = func(ctx context.Context, text, model string) ([]float64, error) {
		return make([]float64, testDimensions+1), nil
	}
	generator := newTestGenerator(client)
	chunk := testChunk("c1", "doc-1", nil, 0)

	result := generator.EmbedBatch(context.Background(), []*models.Chunk{chunk})

	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 4, result.Failed)
	assert.Empty(t, chunk.Embeddings)
	for _, failure := range result.Failures {
		assert.Contains(t, failure.Reason, "dimension mismatch")
	}
}

func TestEmbedBatch_EmptyBatch(t *testing.T) {
	generator := newTestGenerator(NewMockEmbeddingClient(testDimensions))

	result := generator.EmbedBatch(context.Background(), nil)
	assert.Equal(t, 0, result.ChunksProcessed)
	assert.Equal(t, 0, result.Generated)
}
