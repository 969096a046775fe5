package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// ChunkRepository provides database operations for chunks
type ChunkRepository struct {
	db *PostgresService
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *PostgresService) *ChunkRepository {
	return &ChunkRepository{db: db}
}

const chunkColumns = `
	chunk_id, document_id, node_id, content, content_hash,
	token_count, character_count, word_count,
	scale, hierarchy_level, sequence_order, hierarchy_path, parent_chunk_id,
	quality_score, coherence_score, chunk_statistics,
	version_id, processing_pipeline, created_at, updated_at`

// UpsertChunks writes a chunk batch inside one transaction. The conflict
// key is (document_id, node_id): deterministic node IDs make re-ingestion
// an in-place update.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chunks (
			chunk_id, document_id, node_id, content, content_hash,
			token_count, character_count, word_count,
			scale, hierarchy_level, sequence_order, hierarchy_path, parent_chunk_id,
			quality_score, coherence_score, chunk_statistics,
			version_id, processing_pipeline, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (document_id, node_id) DO UPDATE SET
			chunk_id = EXCLUDED.chunk_id,
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			token_count = EXCLUDED.token_count,
			character_count = EXCLUDED.character_count,
			word_count = EXCLUDED.word_count,
			scale = EXCLUDED.scale,
			hierarchy_level = EXCLUDED.hierarchy_level,
			sequence_order = EXCLUDED.sequence_order,
			hierarchy_path = EXCLUDED.hierarchy_path,
			parent_chunk_id = EXCLUDED.parent_chunk_id,
			quality_score = EXCLUDED.quality_score,
			coherence_score = EXCLUDED.coherence_score,
			chunk_statistics = EXCLUDED.chunk_statistics,
			version_id = EXCLUDED.version_id,
			processing_pipeline = EXCLUDED.processing_pipeline,
			updated_at = EXCLUDED.updated_at`

	for _, chunk := range chunks {
		statsJSON, err := json.Marshal(chunk.Statistics)
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeSerializationError, "failed to marshal chunk statistics", err)
		}

		now := time.Now()
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now

		_, err = tx.Exec(ctx, query,
			chunk.ChunkID, chunk.DocumentID, chunk.NodeID, chunk.Content, chunk.ContentHash,
			chunk.TokenCount, chunk.CharacterCount, chunk.WordCount,
			string(chunk.Scale), chunk.HierarchyLevel, chunk.SequenceOrder,
			pq.Array(chunk.HierarchyPath), chunk.ParentChunkID,
			chunk.QualityScore, chunk.CoherenceScore, statsJSON,
			chunk.VersionID, chunk.PipelineTag, chunk.CreatedAt, chunk.UpdatedAt,
		)
		if err != nil {
			return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to upsert chunk "+chunk.NodeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to commit chunk batch", err)
	}
	return nil
}

// GetChunk retrieves a chunk by its ID
func (r *ChunkRepository) GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE chunk_id = $1`

	chunk, err := scanChunk(r.db.QueryRow(ctx, query, chunkID))
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+chunkID, nil)
	}
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to query chunk", err)
	}
	return chunk, nil
}

// ListChunksByDocument retrieves a document's chunks in hierarchy order
func (r *ChunkRepository) ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + `
		FROM chunks
		WHERE document_id = $1
		ORDER BY hierarchy_level, sequence_order, node_id`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to query chunks", err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to scan chunk", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// PruneChunks deletes the document's chunks whose node IDs are not in
// keep, with their relationship edges and embeddings, in one transaction.
// Without this a re-ingest that produced fewer nodes would strand rows
// under node IDs the new chunking never touches.
func (r *ChunkRepository) PruneChunks(ctx context.Context, documentID string, keep []string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	stale := `SELECT chunk_id FROM chunks WHERE document_id = $1 AND NOT (node_id = ANY($2))`

	if _, err := tx.Exec(ctx,
		`DELETE FROM chunk_relationships
		 WHERE source_chunk_id IN (`+stale+`) OR target_chunk_id IN (`+stale+`)`,
		documentID, pq.Array(keep)); err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to prune relationships", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM chunk_embeddings WHERE chunk_id IN (`+stale+`)`,
		documentID, pq.Array(keep)); err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to prune embeddings", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND NOT (node_id = ANY($2))`,
		documentID, pq.Array(keep))
	if err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to prune chunks", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to commit chunk prune", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteChunk removes a chunk and cascade-deletes every relationship edge
// and embedding referencing it, in one transaction
func (r *ChunkRepository) DeleteChunk(ctx context.Context, chunkID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM chunk_relationships WHERE source_chunk_id = $1 OR target_chunk_id = $1`, chunkID); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to delete relationships", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM chunk_embeddings WHERE chunk_id = $1`, chunkID); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to delete embeddings", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE chunk_id = $1`, chunkID)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to delete chunk", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+chunkID, nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to commit chunk delete", err)
	}
	return nil
}

// scanChunk reads one chunk row from a pgx row or rows cursor
func scanChunk(row pgx.Row) (*models.Chunk, error) {
	var chunk models.Chunk
	var scale string
	var statsJSON []byte
	var path []string

	err := row.Scan(
		&chunk.ChunkID, &chunk.DocumentID, &chunk.NodeID, &chunk.Content, &chunk.ContentHash,
		&chunk.TokenCount, &chunk.CharacterCount, &chunk.WordCount,
		&scale, &chunk.HierarchyLevel, &chunk.SequenceOrder, pq.Array(&path), &chunk.ParentChunkID,
		&chunk.QualityScore, &chunk.CoherenceScore, &statsJSON,
		&chunk.VersionID, &chunk.PipelineTag, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	chunk.Scale = models.Scale(scale)
	chunk.HierarchyPath = path
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &chunk.Statistics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk statistics: %w", err)
		}
	}
	return &chunk, nil
}
