package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"document-chunk-index/errors"
	"document-chunk-index/models"
)

const (
	// ParentChildStrength is the fixed strength of hierarchy edges
	ParentChildStrength = 1.0
	// SiblingStrength is the fixed strength of adjacency edges
	SiblingStrength = 0.8
)

// EdgeRelationshipManager keeps the relationship edge table consistent
// with the authoritative ParentChunkID field. Every reparent writes the
// parent field and its edge pair in one atomic change; child and sibling
// sets are only ever read back as views over the edges.
type EdgeRelationshipManager struct {
	chunks ChunkStore
	edges  RelationshipStore
	logger Logger
}

// NewEdgeRelationshipManager creates a new relationship manager
func NewEdgeRelationshipManager(chunks ChunkStore, edges RelationshipStore, logger Logger) *EdgeRelationshipManager {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &EdgeRelationshipManager{chunks: chunks, edges: edges, logger: logger}
}

// SetParent reassigns a chunk's parent. The old edge pair is removed and
// the new pair inserted in the same transaction as the parent field write,
// so readers never observe a half-updated hierarchy.
func (m *EdgeRelationshipManager) SetParent(ctx context.Context, chunk *models.Chunk, newParentID *string) error {
	if chunk == nil {
		return errors.NewValidationError(errors.ErrCodeMissingField, "chunk is required", nil)
	}
	if newParentID != nil && *newParentID == chunk.ChunkID {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "chunk cannot be its own parent", nil)
	}
	if sameParent(chunk.ParentChunkID, newParentID) {
		return nil
	}

	if newParentID != nil {
		if _, err := m.chunks.GetChunk(ctx, *newParentID); err != nil {
			return errors.NewNotFoundError(errors.ErrCodeChunkNotFound, fmt.Sprintf("parent chunk %s not found", *newParentID), err)
		}
	}

	change := models.ParentChange{
		ChunkID:     chunk.ChunkID,
		NewParentID: newParentID,
	}
	if chunk.ParentChunkID != nil {
		change.DeleteEdges = parentEdgePair(chunk.ChunkID, *chunk.ParentChunkID)
	}
	if newParentID != nil {
		change.InsertEdges = parentEdgePair(chunk.ChunkID, *newParentID)
	}

	if err := m.edges.ApplyParentChange(ctx, change); err != nil {
		return err
	}

	chunk.ParentChunkID = newParentID
	chunk.UpdatedAt = time.Now()
	return nil
}

// RebuildSiblingEdges recomputes adjacency edges for one document: within
// each parent group, consecutive chunks by sequence order get a symmetric
// sibling edge pair. Returns the number of edges written.
func (m *EdgeRelationshipManager) RebuildSiblingEdges(ctx context.Context, documentID string) (int, error) {
	chunks, err := m.chunks.ListChunksByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return m.writeSiblingEdges(ctx, chunks)
}

// SyncDocument writes the full edge set for a freshly chunked document:
// one parent/child pair per parented chunk plus adjacency sibling pairs.
// Edge writes are idempotent, so re-running after re-ingestion converges.
func (m *EdgeRelationshipManager) SyncDocument(ctx context.Context, chunks []*models.Chunk) (int, error) {
	total := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if chunk.ParentChunkID == nil {
			continue
		}
		change := models.ParentChange{
			ChunkID:     chunk.ChunkID,
			NewParentID: chunk.ParentChunkID,
			InsertEdges: parentEdgePair(chunk.ChunkID, *chunk.ParentChunkID),
		}
		if err := m.edges.ApplyParentChange(ctx, change); err != nil {
			return total, err
		}
		total += len(change.InsertEdges)
	}

	siblings, err := m.writeSiblingEdges(ctx, chunks)
	if err != nil {
		return total, err
	}
	return total + siblings, nil
}

func (m *EdgeRelationshipManager) writeSiblingEdges(ctx context.Context, chunks []*models.Chunk) (int, error) {
	groups := make(map[string][]*models.Chunk)
	for _, chunk := range chunks {
		groups[parentKey(chunk)] = append(groups[parentKey(chunk)], chunk)
	}

	total := 0
	for key, group := range groups {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].SequenceOrder < group[j].SequenceOrder
		})

		var edges []models.Relationship
		for i := 1; i < len(group); i++ {
			edges = append(edges, siblingEdgePair(group[i-1].ChunkID, group[i].ChunkID)...)
		}
		if err := m.edges.ReplaceSiblingEdges(ctx, key, edges); err != nil {
			return total, err
		}
		total += len(edges)
	}
	return total, nil
}

// parentEdgePair builds the symmetric parent/child edge pair for one link
func parentEdgePair(childID, parentID string) []models.Relationship {
	now := time.Now()
	return []models.Relationship{
		{SourceChunkID: childID, TargetChunkID: parentID, Type: models.RelationshipTypeParent, Strength: ParentChildStrength, CreatedAt: now},
		{SourceChunkID: parentID, TargetChunkID: childID, Type: models.RelationshipTypeChild, Strength: ParentChildStrength, CreatedAt: now},
	}
}

// siblingEdgePair builds the symmetric sibling edge pair for two adjacent
// chunks
func siblingEdgePair(a, b string) []models.Relationship {
	now := time.Now()
	return []models.Relationship{
		{SourceChunkID: a, TargetChunkID: b, Type: models.RelationshipTypeSibling, Strength: SiblingStrength, CreatedAt: now},
		{SourceChunkID: b, TargetChunkID: a, Type: models.RelationshipTypeSibling, Strength: SiblingStrength, CreatedAt: now},
	}
}

func parentKey(chunk *models.Chunk) string {
	if chunk.ParentChunkID == nil {
		return "root:" + chunk.DocumentID
	}
	return *chunk.ParentChunkID
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
