package database

import (
	"context"
)

// SQLStore bundles the repositories into the single Store surface the
// service layer depends on
type SQLStore struct {
	*ChunkRepository
	*RelationshipRepository
	*EmbeddingRepository
	*DocumentRepository

	db *PostgresService
}

// NewSQLStore creates the combined store over one connection pool
func NewSQLStore(db *PostgresService) *SQLStore {
	chunks := NewChunkRepository(db)
	return &SQLStore{
		ChunkRepository:        chunks,
		RelationshipRepository: NewRelationshipRepository(db),
		EmbeddingRepository:    NewEmbeddingRepository(db, chunks),
		DocumentRepository:     NewDocumentRepository(db),
		db:                     db,
	}
}

// HealthCheck verifies database connectivity
func (s *SQLStore) HealthCheck(ctx context.Context) error {
	return s.db.Health(ctx)
}
