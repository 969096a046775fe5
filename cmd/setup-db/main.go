package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"document-chunk-index/config"
	"document-chunk-index/database"
)

// schema creates the tables, the pgvector extension and the indexes the
// repositories rely on. Statements are idempotent so re-runs are safe.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS documents (
		document_id     TEXT PRIMARY KEY,
		title           TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'processing',
		chunk_count     INTEGER NOT NULL DEFAULT 0,
		total_tokens    INTEGER NOT NULL DEFAULT 0,
		average_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chunks (
		chunk_id            TEXT PRIMARY KEY,
		document_id         TEXT NOT NULL REFERENCES documents(document_id),
		node_id             TEXT NOT NULL,
		content             TEXT NOT NULL,
		content_hash        TEXT NOT NULL,
		token_count         INTEGER NOT NULL DEFAULT 0,
		character_count     INTEGER NOT NULL DEFAULT 0,
		word_count          INTEGER NOT NULL DEFAULT 0,
		scale               TEXT NOT NULL,
		hierarchy_level     INTEGER NOT NULL DEFAULT 0,
		sequence_order      INTEGER NOT NULL DEFAULT 0,
		hierarchy_path      TEXT[] NOT NULL DEFAULT '{}',
		parent_chunk_id     TEXT,
		quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
		coherence_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
		chunk_statistics    JSONB,
		version_id          TEXT NOT NULL DEFAULT '',
		processing_pipeline TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (document_id, node_id)
	)`,

	`CREATE TABLE IF NOT EXISTS chunk_relationships (
		source_chunk_id       TEXT NOT NULL REFERENCES chunks(chunk_id),
		target_chunk_id       TEXT NOT NULL REFERENCES chunks(chunk_id),
		relationship_type     TEXT NOT NULL,
		relationship_strength DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (source_chunk_id, target_chunk_id, relationship_type)
	)`,

	`CREATE TABLE IF NOT EXISTS chunk_embeddings (
		chunk_id          TEXT NOT NULL REFERENCES chunks(chunk_id),
		embedding_type    TEXT NOT NULL,
		vector            vector(3072) NOT NULL,
		quality_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
		dimensionality    INTEGER NOT NULL,
		validation_status TEXT NOT NULL DEFAULT 'valid',
		model             TEXT NOT NULL DEFAULT '',
		generated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (chunk_id, embedding_type)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_chunk_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_target ON chunk_relationships(target_chunk_id)`,
	`CREATE INDEX IF NOT EXISTS idx_embeddings_type ON chunk_embeddings(embedding_type)`,
}

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	db, err := database.NewPostgresService(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			fmt.Fprintf(os.Stderr, "schema statement failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("schema ready")
}
