package database

import (
	"context"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

// RelationshipRepository provides database operations for the chunk
// relationship edge table
type RelationshipRepository struct {
	db *PostgresService
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *PostgresService) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

const insertEdgeQuery = `
	INSERT INTO chunk_relationships (
		source_chunk_id, target_chunk_id, relationship_type, relationship_strength, created_at
	) VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (source_chunk_id, target_chunk_id, relationship_type)
	DO UPDATE SET relationship_strength = EXCLUDED.relationship_strength`

// ApplyParentChange writes the chunk's parent_chunk_id and its edge pair
// deletes/inserts as one transaction, so readers never observe the parent
// field and the edge table disagreeing
func (r *RelationshipRepository) ApplyParentChange(ctx context.Context, change models.ParentChange) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE chunks SET parent_chunk_id = $1, updated_at = NOW() WHERE chunk_id = $2`,
		change.NewParentID, change.ChunkID)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to update parent", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, "chunk not found: "+change.ChunkID, nil)
	}

	for _, edge := range change.DeleteEdges {
		_, err := tx.Exec(ctx,
			`DELETE FROM chunk_relationships
			 WHERE source_chunk_id = $1 AND target_chunk_id = $2 AND relationship_type = $3`,
			edge.SourceChunkID, edge.TargetChunkID, string(edge.Type))
		if err != nil {
			return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to delete edge", err)
		}
	}

	for _, edge := range change.InsertEdges {
		_, err := tx.Exec(ctx, insertEdgeQuery,
			edge.SourceChunkID, edge.TargetChunkID, string(edge.Type), edge.Strength, edge.CreatedAt)
		if err != nil {
			return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to insert edge", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to commit parent change", err)
	}
	return nil
}

// ReplaceSiblingEdges atomically replaces the sibling edges among the
// children of one parent group
func (r *RelationshipRepository) ReplaceSiblingEdges(ctx context.Context, parentKey string, edges []models.Relationship) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseConnection, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// sibling edges live between children of the same parent; delete the
	// old group output before writing the new adjacency set
	_, err = tx.Exec(ctx,
		`DELETE FROM chunk_relationships
		 WHERE relationship_type = 'sibling'
		   AND source_chunk_id IN (SELECT chunk_id FROM chunks WHERE COALESCE(parent_chunk_id, 'root:' || document_id) = $1)`,
		parentKey)
	if err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to clear sibling edges", err)
	}

	for _, edge := range edges {
		_, err := tx.Exec(ctx, insertEdgeQuery,
			edge.SourceChunkID, edge.TargetChunkID, string(edge.Type), edge.Strength, edge.CreatedAt)
		if err != nil {
			return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to insert sibling edge", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to commit sibling edges", err)
	}
	return nil
}

// ListRelationships returns every edge referencing the chunk
func (r *RelationshipRepository) ListRelationships(ctx context.Context, chunkID string) ([]models.Relationship, error) {
	query := `
		SELECT source_chunk_id, target_chunk_id, relationship_type, relationship_strength, created_at
		FROM chunk_relationships
		WHERE source_chunk_id = $1 OR target_chunk_id = $1
		ORDER BY source_chunk_id, target_chunk_id, relationship_type`

	return r.queryEdges(ctx, query, chunkID)
}

// ListRelationshipsByType returns the chunk's outgoing edges of one type
func (r *RelationshipRepository) ListRelationshipsByType(ctx context.Context, chunkID string, relType models.RelationshipType) ([]models.Relationship, error) {
	query := `
		SELECT source_chunk_id, target_chunk_id, relationship_type, relationship_strength, created_at
		FROM chunk_relationships
		WHERE source_chunk_id = $1 AND relationship_type = $2
		ORDER BY target_chunk_id`

	return r.queryEdges(ctx, query, chunkID, string(relType))
}

func (r *RelationshipRepository) queryEdges(ctx context.Context, query string, args ...interface{}) ([]models.Relationship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to query relationships", err)
	}
	defer rows.Close()

	var edges []models.Relationship
	for rows.Next() {
		var edge models.Relationship
		var relType string
		if err := rows.Scan(&edge.SourceChunkID, &edge.TargetChunkID, &relType, &edge.Strength, &edge.CreatedAt); err != nil {
			return nil, errors.NewDatabaseError(errors.ErrCodeDatabaseQuery, "failed to scan relationship", err)
		}
		edge.Type = models.RelationshipType(relType)
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
