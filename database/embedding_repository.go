package database

import (
	"context"
	"strconv"
	"strings"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// EmbeddingRepository persists per-(chunk, type) vectors with their
// quality records and answers similarity queries via pgvector
type EmbeddingRepository struct {
	db     *PostgresService
	chunks *ChunkRepository
}

// NewEmbeddingRepository creates a new embedding repository
func NewEmbeddingRepository(db *PostgresService, chunks *ChunkRepository) *EmbeddingRepository {
	return &EmbeddingRepository{db: db, chunks: chunks}
}

// PutEmbedding upserts one (chunk, type) vector and its quality record
func (r *EmbeddingRepository) PutEmbedding(ctx context.Context, chunkID string, embedding models.Embedding) error {
	query := `
		INSERT INTO chunk_embeddings (
			chunk_id, embedding_type, vector, quality_score, dimensionality,
			validation_status, model, generated_at
		) VALUES ($1, $2, $3::vector, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id, embedding_type) DO UPDATE SET
			vector = EXCLUDED.vector,
			quality_score = EXCLUDED.quality_score,
			dimensionality = EXCLUDED.dimensionality,
			validation_status = EXCLUDED.validation_status,
			model = EXCLUDED.model,
			generated_at = EXCLUDED.generated_at`

	_, err := r.db.Exec(ctx, query,
		chunkID, string(embedding.Type), vectorLiteral(embedding.Vector),
		embedding.QualityScore, embedding.Dimensionality,
		string(embedding.Status), embedding.Model, embedding.GeneratedAt,
	)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to upsert embedding", err)
	}
	return nil
}

// SearchByVector runs a cosine similarity query over stored vectors of one
// embedding type. Rejected vectors are excluded; results come back ordered
// by similarity descending.
func (r *EmbeddingRepository) SearchByVector(ctx context.Context, query []float64, embType models.EmbeddingType, threshold float64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	sql := `
		SELECT e.chunk_id, 1 - (e.vector <=> $1::vector) AS similarity
		FROM chunk_embeddings e
		WHERE e.embedding_type = $2
		  AND e.validation_status <> 'rejected'
		  AND 1 - (e.vector <=> $1::vector) >= $3
		ORDER BY similarity DESC
		LIMIT $4`

	rows, err := r.db.Query(ctx, sql, vectorLiteral(query), string(embType), threshold, limit)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to run similarity query", err)
	}
	defer rows.Close()

	type hit struct {
		chunkID    string
		similarity float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.chunkID, &h.similarity); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to scan similarity row", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "similarity query failed", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		chunk, err := r.chunks.GetChunk(ctx, h.chunkID)
		if err != nil {
			continue // chunk deleted between query and fetch
		}
		results = append(results, models.SearchResult{
			Chunk:      chunk,
			Similarity: h.similarity,
			Score:      h.similarity,
		})
	}
	return results, nil
}

// vectorLiteral renders a float slice as a pgvector input literal
func vectorLiteral(vec []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
