package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/models"
)

func testChunk(id, docID string, parentID *string, seq int) *models.Chunk {
	return &models.Chunk{
		ChunkID:       id,
		DocumentID:    docID,
		NodeID:        "node-" + id,
		Content:       "content of " + id,
		Scale:         models.ScaleParagraph,
		SequenceOrder: seq,
		ParentChunkID: parentID,
	}
}

func seedHierarchy(t *testing.T, store *MemoryStore) (*models.Chunk, *models.Chunk, *models.Chunk) {
	t.Helper()
	parent := testChunk("parent", "doc-1", nil, 0)
	childA := testChunk("child-a", "doc-1", &parent.ChunkID, 0)
	childB := testChunk("child-b", "doc-1", &parent.ChunkID, 1)
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{parent, childA, childB}))
	return parent, childA, childB
}

func TestSyncDocument_EdgeSymmetry(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	parent, childA, childB := seedHierarchy(t, store)

	edges, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA, childB})
	require.NoError(t, err)
	// two parent/child pairs plus one sibling pair
	assert.Equal(t, 6, edges)

	for _, child := range []*models.Chunk{childA, childB} {
		outgoing, err := store.ListRelationshipsByType(context.Background(), child.ChunkID, models.RelationshipTypeParent)
		require.NoError(t, err)
		require.Len(t, outgoing, 1)
		assert.Equal(t, parent.ChunkID, outgoing[0].TargetChunkID)
		assert.Equal(t, ParentChildStrength, outgoing[0].Strength)
	}

	children, err := store.ListRelationshipsByType(context.Background(), parent.ChunkID, models.RelationshipTypeChild)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestSyncDocument_AdjacentSiblingEdges(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	parent, childA, childB := seedHierarchy(t, store)

	_, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA, childB})
	require.NoError(t, err)

	siblingsOfA, err := store.ListRelationshipsByType(context.Background(), childA.ChunkID, models.RelationshipTypeSibling)
	require.NoError(t, err)
	require.Len(t, siblingsOfA, 1)
	assert.Equal(t, childB.ChunkID, siblingsOfA[0].TargetChunkID)
	assert.Equal(t, SiblingStrength, siblingsOfA[0].Strength)

	siblingsOfB, err := store.ListRelationshipsByType(context.Background(), childB.ChunkID, models.RelationshipTypeSibling)
	require.NoError(t, err)
	require.Len(t, siblingsOfB, 1)
	assert.Equal(t, childA.ChunkID, siblingsOfB[0].TargetChunkID)
}

func TestSetParent_ReplacesEdgePair(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	parent, childA, _ := seedHierarchy(t, store)
	newParent := testChunk("new-parent", "doc-1", nil, 1)
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{newParent}))

	_, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA})
	require.NoError(t, err)

	require.NoError(t, manager.SetParent(context.Background(), childA, &newParent.ChunkID))
	assert.Equal(t, newParent.ChunkID, *childA.ParentChunkID)

	outgoing, err := store.ListRelationshipsByType(context.Background(), childA.ChunkID, models.RelationshipTypeParent)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, newParent.ChunkID, outgoing[0].TargetChunkID)

	oldChildren, err := store.ListRelationshipsByType(context.Background(), parent.ChunkID, models.RelationshipTypeChild)
	require.NoError(t, err)
	for _, edge := range oldChildren {
		assert.NotEqual(t, childA.ChunkID, edge.TargetChunkID)
	}
}

func TestSetParent_RejectsSelfParent(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	_, childA, _ := seedHierarchy(t, store)

	err := manager.SetParent(context.Background(), childA, &childA.ChunkID)
	assert.Error(t, err)
}

func TestSetParent_RejectsMissingParent(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	_, childA, _ := seedHierarchy(t, store)

	missing := "no-such-chunk"
	err := manager.SetParent(context.Background(), childA, &missing)
	assert.Error(t, err)
}

func TestDeleteChunk_CascadesEdges(t *testing.T) {
	store := NewMemoryStore()
	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	parent, childA, childB := seedHierarchy(t, store)

	_, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA, childB})
	require.NoError(t, err)

	require.NoError(t, store.DeleteChunk(context.Background(), childA.ChunkID))

	for _, remaining := range []string{parent.ChunkID, childB.ChunkID} {
		edges, err := store.ListRelationships(context.Background(), remaining)
		require.NoError(t, err)
		for _, edge := range edges {
			assert.NotEqual(t, childA.ChunkID, edge.SourceChunkID)
			assert.NotEqual(t, childA.ChunkID, edge.TargetChunkID)
		}
	}
}
