package models

import (
	"time"
)

// QualityResult is the output of scoring one chunk
type QualityResult struct {
	QualityScore   float64                `json:"quality_score"`
	CoherenceScore float64                `json:"coherence_score"`
	Statistics     map[string]interface{} `json:"statistics"`
}

// EmbeddingFailure records one failed (chunk, embedding type) generation
type EmbeddingFailure struct {
	ChunkID string        `json:"chunk_id"`
	Type    EmbeddingType `json:"embedding_type"`
	Reason  string        `json:"reason"`
}

// EmbeddingBatchResult summarizes embedding generation over a chunk batch.
// Individual call failures are recorded here, never propagated as errors.
type EmbeddingBatchResult struct {
	ChunksProcessed int                `json:"chunks_processed"`
	Generated       int                `json:"generated"`
	Failed          int                `json:"failed"`
	Failures        []EmbeddingFailure `json:"failures,omitempty"`
	Duration        time.Duration      `json:"duration"`
}

// IngestResult summarizes one document ingestion pass
type IngestResult struct {
	DocumentID      string                `json:"document_id"`
	Status          DocumentStatus        `json:"status"`
	ChunksCreated   int                   `json:"chunks_created"`
	ChunksScored    int                   `json:"chunks_scored"`
	ChunksPruned    int                   `json:"chunks_pruned"`
	EdgesCreated    int                   `json:"edges_created"`
	Embeddings      *EmbeddingBatchResult `json:"embeddings,omitempty"`
	TotalTokens     int                   `json:"total_tokens"`
	AverageQuality  float64               `json:"average_quality"`
	Duration        time.Duration         `json:"duration"`
	StartedAt       time.Time             `json:"started_at"`
	VersionID       string                `json:"version_id"`
	ProcessingNotes []string              `json:"processing_notes,omitempty"`
}

// SearchResult is one ranked retrieval hit
type SearchResult struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float64 `json:"similarity"`
	// Score is the ranking score: raw similarity, or similarity weighted
	// by chunk quality in quality-weighted mode
	Score float64 `json:"score"`
}

// SearchRequest carries retrieval parameters
type SearchRequest struct {
	Query               string        `json:"query,omitempty"`
	QueryEmbedding      []float64     `json:"query_embedding,omitempty"`
	EmbeddingType       EmbeddingType `json:"embedding_type"`
	SimilarityThreshold float64       `json:"similarity_threshold"`
	MaxResults          int           `json:"max_results"`
	QualityWeighted     bool          `json:"quality_weighted"`
}

// SearchResponse wraps an ordered result set
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
	SearchTime time.Duration  `json:"search_time"`
}

// FindingType classifies consistency findings
type FindingType string

const (
	FindingOrphanedParent  FindingType = "orphaned_parent"
	FindingCycle           FindingType = "cycle"
	FindingAsymmetricEdge  FindingType = "asymmetric_edge"
	FindingMissingEdgePair FindingType = "missing_edge_pair"
	FindingPathMismatch    FindingType = "path_mismatch"
	FindingScoreOutOfRange FindingType = "score_out_of_range"
)

// Finding is one detected consistency violation. Findings are reported,
// never repaired automatically.
type Finding struct {
	Type        FindingType            `json:"type"`
	DocumentID  string                 `json:"document_id"`
	ChunkID     string                 `json:"chunk_id"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Severity    string                 `json:"severity"`
	DetectedAt  time.Time              `json:"detected_at"`
}

// ConsistencyReport aggregates a validation pass
type ConsistencyReport struct {
	CheckTime      time.Time           `json:"check_time"`
	DocumentsSeen  int                 `json:"documents_seen"`
	ChunksSeen     int                 `json:"chunks_seen"`
	TotalFindings  int                 `json:"total_findings"`
	FindingsByType map[FindingType]int `json:"findings_by_type"`
	Findings       []Finding           `json:"findings"`
	Duration       time.Duration       `json:"duration"`
}

// IngestRequest is the HTTP payload for document ingestion
type IngestRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	// SkipEmbeddings ingests structure and quality only; embeddings can be
	// backfilled by a later pass
	SkipEmbeddings bool `json:"skip_embeddings,omitempty"`
}

// ErrorResponse is the standard HTTP error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
