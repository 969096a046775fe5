package models

import (
	"time"
)

// Scale represents the granularity level of a chunk
type Scale string

const (
	ScaleDocument  Scale = "document"
	ScaleSection   Scale = "section"
	ScaleParagraph Scale = "paragraph"
	ScaleSentence  Scale = "sentence"
)

// Rank returns the coarseness rank of a scale (0 = coarsest)
func (s Scale) Rank() int {
	switch s {
	case ScaleDocument:
		return 0
	case ScaleSection:
		return 1
	case ScaleParagraph:
		return 2
	case ScaleSentence:
		return 3
	default:
		return -1
	}
}

// Code returns the short identifier used in node IDs
func (s Scale) Code() string {
	switch s {
	case ScaleDocument:
		return "doc"
	case ScaleSection:
		return "sec"
	case ScaleParagraph:
		return "par"
	case ScaleSentence:
		return "sen"
	default:
		return "unk"
	}
}

// IsValid reports whether the scale is one of the four known scales
func (s Scale) IsValid() bool {
	return s.Rank() >= 0
}

// AllScales lists the scales from coarsest to finest
func AllScales() []Scale {
	return []Scale{ScaleDocument, ScaleSection, ScaleParagraph, ScaleSentence}
}

// EmbeddingType identifies one of the independently generated vector
// representations of a chunk
type EmbeddingType string

const (
	EmbeddingTypeContent      EmbeddingType = "content"
	EmbeddingTypeContextual   EmbeddingType = "contextual"
	EmbeddingTypeHierarchical EmbeddingType = "hierarchical"
	EmbeddingTypeSemantic     EmbeddingType = "semantic"
)

// IsValid reports whether the embedding type is known
func (t EmbeddingType) IsValid() bool {
	switch t {
	case EmbeddingTypeContent, EmbeddingTypeContextual, EmbeddingTypeHierarchical, EmbeddingTypeSemantic:
		return true
	}
	return false
}

// AllEmbeddingTypes lists every embedding type a chunk can carry
func AllEmbeddingTypes() []EmbeddingType {
	return []EmbeddingType{
		EmbeddingTypeContent,
		EmbeddingTypeContextual,
		EmbeddingTypeHierarchical,
		EmbeddingTypeSemantic,
	}
}

// ValidationStatus tags the outcome of embedding validation
type ValidationStatus string

const (
	ValidationStatusValid    ValidationStatus = "valid"
	ValidationStatusMigrated ValidationStatus = "migrated"
	ValidationStatusRejected ValidationStatus = "rejected"
)

// RelationshipType identifies the direction/kind of a chunk edge
type RelationshipType string

const (
	RelationshipTypeParent  RelationshipType = "parent"
	RelationshipTypeChild   RelationshipType = "child"
	RelationshipTypeSibling RelationshipType = "sibling"
)

// Embedding is one stored vector for a chunk plus its quality record.
// A chunk that failed generation for a type simply has no entry for it;
// vectors are never zero-padded or truncated to fit.
type Embedding struct {
	Type           EmbeddingType    `json:"type" db:"embedding_type"`
	Vector         []float64        `json:"vector" db:"vector"`
	QualityScore   float64          `json:"quality_score" db:"quality_score"`
	Dimensionality int              `json:"dimensionality" db:"dimensionality"`
	Status         ValidationStatus `json:"validation_status" db:"validation_status"`
	Model          string           `json:"model,omitempty" db:"model"`
	GeneratedAt    time.Time        `json:"generated_at" db:"generated_at"`
}

// Chunk is the atomic retrievable unit of an indexed document.
// ParentChunkID is the single authoritative hierarchy field; child and
// sibling sets are computed views over the relationship edges.
type Chunk struct {
	ChunkID    string `json:"chunk_id" db:"chunk_id"`
	DocumentID string `json:"document_id" db:"document_id"`
	NodeID     string `json:"node_id" db:"node_id"`

	Content        string `json:"content" db:"content"`
	ContentHash    string `json:"content_hash" db:"content_hash"`
	TokenCount     int    `json:"token_count" db:"token_count"`
	CharacterCount int    `json:"character_count" db:"character_count"`
	WordCount      int    `json:"word_count" db:"word_count"`

	Scale          Scale    `json:"scale" db:"scale"`
	HierarchyLevel int      `json:"hierarchy_level" db:"hierarchy_level"`
	SequenceOrder  int      `json:"sequence_order" db:"sequence_order"`
	HierarchyPath  []string `json:"hierarchy_path" db:"hierarchy_path"`

	ParentChunkID *string `json:"parent_chunk_id" db:"parent_chunk_id"`

	QualityScore   float64                `json:"quality_score" db:"quality_score"`
	CoherenceScore float64                `json:"coherence_score" db:"coherence_score"`
	Statistics     map[string]interface{} `json:"chunk_statistics,omitempty" db:"chunk_statistics"`

	Embeddings map[EmbeddingType]Embedding `json:"embeddings,omitempty" db:"-"`

	VersionID   string    `json:"version_id" db:"version_id"`
	PipelineTag string    `json:"processing_pipeline" db:"processing_pipeline"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasEmbedding reports whether a valid vector of the given type is stored
func (c *Chunk) HasEmbedding(t EmbeddingType) bool {
	emb, ok := c.Embeddings[t]
	return ok && len(emb.Vector) > 0 && emb.Status != ValidationStatusRejected
}

// ChunkView is a chunk together with its derived relationship views
type ChunkView struct {
	Chunk           *Chunk   `json:"chunk"`
	ChildChunkIDs   []string `json:"child_chunk_ids"`
	SiblingChunkIDs []string `json:"sibling_chunk_ids"`
}

// Relationship is a directed, typed edge between two chunks
type Relationship struct {
	SourceChunkID string           `json:"source_chunk_id" db:"source_chunk_id"`
	TargetChunkID string           `json:"target_chunk_id" db:"target_chunk_id"`
	Type          RelationshipType `json:"relationship_type" db:"relationship_type"`
	Strength      float64          `json:"relationship_strength" db:"relationship_strength"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// Key returns the uniqueness key of the edge
func (r Relationship) Key() string {
	return r.SourceChunkID + "|" + r.TargetChunkID + "|" + string(r.Type)
}

// ParentChange describes one atomic reparent operation: the chunk's
// parent_chunk_id write plus the edge pair deletes/inserts that keep the
// relationship table symmetric with it. Stores must apply the whole change
// in a single transaction.
type ParentChange struct {
	ChunkID     string         `json:"chunk_id"`
	NewParentID *string        `json:"new_parent_id"`
	DeleteEdges []Relationship `json:"delete_edges"`
	InsertEdges []Relationship `json:"insert_edges"`
}

// DocumentStatus tracks ingestion progress of a document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusComplete   DocumentStatus = "complete"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document aggregates its chunk set. ChunkCount, TotalTokens and
// AverageQuality are recomputed from the stored chunks after each batch of
// chunk writes; they are never authored directly.
type Document struct {
	DocumentID     string         `json:"document_id" db:"document_id"`
	Title          string         `json:"title" db:"title"`
	Status         DocumentStatus `json:"status" db:"status"`
	ChunkCount     int            `json:"chunk_count" db:"chunk_count"`
	TotalTokens    int            `json:"total_tokens" db:"total_tokens"`
	AverageQuality float64        `json:"average_quality" db:"average_quality"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
