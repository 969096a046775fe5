package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// DocumentRepository provides database operations for documents
type DocumentRepository struct {
	db *PostgresService
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *PostgresService) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// PutDocument upserts a document row
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (
			document_id, title, status, chunk_count, total_tokens, average_quality,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		doc.DocumentID, doc.Title, string(doc.Status),
		doc.ChunkCount, doc.TotalTokens, doc.AverageQuality,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to upsert document", err)
	}
	return nil
}

// GetDocument retrieves a document by ID
func (r *DocumentRepository) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	query := `
		SELECT document_id, title, status, chunk_count, total_tokens, average_quality,
		       created_at, updated_at
		FROM documents
		WHERE document_id = $1`

	var doc models.Document
	var status string
	err := r.db.QueryRow(ctx, query, documentID).Scan(
		&doc.DocumentID, &doc.Title, &status,
		&doc.ChunkCount, &doc.TotalTokens, &doc.AverageQuality,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to query document", err)
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

// ListDocumentIDs returns every stored document ID
func (r *DocumentRepository) ListDocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT document_id FROM documents ORDER BY document_id`)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to list documents", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to scan document id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeAggregates rederives chunk_count, total_tokens and
// average_quality from the authoritative chunk set and writes them back
func (r *DocumentRepository) RecomputeAggregates(ctx context.Context, documentID string) (*models.Document, error) {
	query := `
		UPDATE documents d SET
			chunk_count = agg.cnt,
			total_tokens = agg.tokens,
			average_quality = agg.quality,
			updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS cnt,
			       COALESCE(SUM(token_count), 0) AS tokens,
			       COALESCE(AVG(quality_score), 0) AS quality
			FROM chunks WHERE document_id = $1
		) agg
		WHERE d.document_id = $1`

	tag, err := r.db.Exec(ctx, query, documentID)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to recompute aggregates", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}
	return r.GetDocument(ctx, documentID)
}

// SetDocumentStatus updates a document's processing status
func (r *DocumentRepository) SetDocumentStatus(ctx context.Context, documentID string, status models.DocumentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = NOW() WHERE document_id = $2`,
		string(status), documentID)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to update document status", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeDocumentNotFound, "document not found: "+documentID, nil)
	}
	return nil
}
