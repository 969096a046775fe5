package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// MockEmbeddingClient is an EmbeddingClient with injectable behavior for
// tests and offline runs. When EmbedFunc is nil it returns a deterministic
// pseudo-vector derived from the input text.
type MockEmbeddingClient struct {
	EmbedFunc  func(ctx context.Context, text string, model string) ([]float64, error)
	Dimensions int
	Calls      int
}

// NewMockEmbeddingClient creates a mock client producing vectors of the
// given dimensionality
func NewMockEmbeddingClient(dimensions int) *MockEmbeddingClient {
	return &MockEmbeddingClient{Dimensions: dimensions}
}

// Embed implements EmbeddingClient
func (m *MockEmbeddingClient) Embed(ctx context.Context, text string, model string) ([]float64, error) {
	m.Calls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text, model)
	}
	return DeterministicVector(text, m.Dimensions), nil
}

// DeterministicVector derives a unit-scale pseudo-embedding from text.
// Identical text always maps to the identical vector, which is enough for
// exercising storage, validation and retrieval paths without a live API.
func DeterministicVector(text string, dimensions int) []float64 {
	if dimensions <= 0 {
		return nil
	}
	seed := sha256.Sum256([]byte(text))
	vec := make([]float64, dimensions)
	for i := range vec {
		chunk := seed[(i*4)%28:]
		v := binary.BigEndian.Uint32(chunk[:4]) ^ uint32(i*2654435761)
		vec[i] = float64(v%2000)/1000.0 - 1.0
	}
	return vec
}
