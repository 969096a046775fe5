package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/models"
)

func findingsOfType(findings []models.Finding, typ models.FindingType) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func syncedHierarchy(t *testing.T) (*MemoryStore, *models.Chunk, *models.Chunk, *models.Chunk) {
	t.Helper()
	store := NewMemoryStore()
	parent, childA, childB := seedHierarchy(t, store)
	parent.HierarchyPath = []string{parent.ChunkID}
	childA.HierarchyPath = []string{parent.ChunkID, childA.ChunkID}
	childB.HierarchyPath = []string{parent.ChunkID, childB.ChunkID}
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{parent, childA, childB}))

	manager := NewEdgeRelationshipManager(store, store, NewDefaultLogger())
	_, err := manager.SyncDocument(context.Background(), []*models.Chunk{parent, childA, childB})
	require.NoError(t, err)
	return store, parent, childA, childB
}

func TestCheckDocument_CleanHierarchy(t *testing.T) {
	store, _, _, _ := syncedHierarchy(t)
	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)

	findings, err := checker.CheckDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckDocument_OrphanedParent(t *testing.T) {
	store, _, childA, _ := syncedHierarchy(t)
	missing := "gone-chunk"
	childA.ParentChunkID = &missing
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{childA}))

	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)
	findings, err := checker.CheckDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	orphans := findingsOfType(findings, models.FindingOrphanedParent)
	require.NotEmpty(t, orphans)
	assert.Equal(t, childA.ChunkID, orphans[0].ChunkID)
}

func TestCheckDocument_CycleDetected(t *testing.T) {
	store, parent, childA, _ := syncedHierarchy(t)
	// close the loop: parent points back at its own child
	parent.ParentChunkID = &childA.ChunkID
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{parent}))

	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)
	findings, err := checker.CheckDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	cycles := findingsOfType(findings, models.FindingCycle)
	assert.NotEmpty(t, cycles)
}

func TestCheckDocument_AsymmetricEdge(t *testing.T) {
	store, parent, childA, _ := syncedHierarchy(t)

	// drop the reverse half of the parent/child pair
	require.NoError(t, store.ApplyParentChange(context.Background(), models.ParentChange{
		ChunkID:     parent.ChunkID,
		NewParentID: nil,
		DeleteEdges: []models.Relationship{{
			SourceChunkID: parent.ChunkID,
			TargetChunkID: childA.ChunkID,
			Type:          models.RelationshipTypeChild,
		}},
	}))

	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)
	findings, err := checker.CheckDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	asymmetric := findingsOfType(findings, models.FindingAsymmetricEdge)
	require.NotEmpty(t, asymmetric)
	assert.Equal(t, childA.ChunkID, asymmetric[0].ChunkID)
}

func TestCheckDocument_ScoreOutOfRange(t *testing.T) {
	store, parent, _, _ := syncedHierarchy(t)
	parent.QualityScore = 1.5
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{parent}))

	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)
	findings, err := checker.CheckDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.NotEmpty(t, findingsOfType(findings, models.FindingScoreOutOfRange))
}

func TestCheckAll_AggregatesReport(t *testing.T) {
	store, _, childA, _ := syncedHierarchy(t)
	require.NoError(t, store.PutDocument(context.Background(), &models.Document{
		DocumentID: "doc-1",
		Status:     models.DocumentStatusComplete,
		CreatedAt:  time.Now(),
	}))
	missing := "gone-chunk"
	childA.ParentChunkID = &missing
	require.NoError(t, store.UpsertChunks(context.Background(), []*models.Chunk{childA}))

	checker := NewHierarchyConsistencyChecker(store, NewDefaultLogger(), nil)
	report, err := checker.CheckAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsSeen)
	assert.Equal(t, 3, report.ChunksSeen)
	assert.Equal(t, len(report.Findings), report.TotalFindings)
	assert.Greater(t, report.FindingsByType[models.FindingOrphanedParent], 0)
}
