package services

import (
	"context"
	"fmt"
	"time"

	"document-chunk-index/models"
)

// maxHierarchyDepth caps parent-chain traversal; a chain longer than this
// is reported as a cycle
const maxHierarchyDepth = 10

// HierarchyConsistencyChecker validates the stored hierarchy. It only ever
// reports findings; repairs are a deliberate, separate operator action.
type HierarchyConsistencyChecker struct {
	store   Store
	logger  Logger
	metrics *Metrics
}

// NewHierarchyConsistencyChecker creates a new checker
func NewHierarchyConsistencyChecker(store Store, logger Logger, metrics *Metrics) *HierarchyConsistencyChecker {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &HierarchyConsistencyChecker{store: store, logger: logger, metrics: metrics}
}

// CheckDocument implements ConsistencyChecker for one document
func (c *HierarchyConsistencyChecker) CheckDocument(ctx context.Context, documentID string) ([]models.Finding, error) {
	chunks, err := c.store.ListChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return c.checkChunks(ctx, documentID, chunks)
}

// CheckAll implements ConsistencyChecker across every stored document
func (c *HierarchyConsistencyChecker) CheckAll(ctx context.Context) (*models.ConsistencyReport, error) {
	started := time.Now()
	report := &models.ConsistencyReport{
		CheckTime:      started,
		FindingsByType: make(map[models.FindingType]int),
	}

	documentIDs, err := c.store.ListDocumentIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, documentID := range documentIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := c.store.ListChunksByDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		findings, err := c.checkChunks(ctx, documentID, chunks)
		if err != nil {
			return nil, err
		}

		report.DocumentsSeen++
		report.ChunksSeen += len(chunks)
		report.Findings = append(report.Findings, findings...)
		for _, f := range findings {
			report.FindingsByType[f.Type]++
			if c.metrics != nil {
				c.metrics.ConsistencyFindings.WithLabelValues(string(f.Type)).Inc()
			}
		}
	}

	report.TotalFindings = len(report.Findings)
	report.Duration = time.Since(started)

	c.logger.Info("consistency check complete",
		Int("documents", report.DocumentsSeen),
		Int("chunks", report.ChunksSeen),
		Int("findings", report.TotalFindings),
		Duration("duration", report.Duration))
	return report, nil
}

func (c *HierarchyConsistencyChecker) checkChunks(ctx context.Context, documentID string, chunks []*models.Chunk) ([]models.Finding, error) {
	byID := make(map[string]*models.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ChunkID] = chunk
	}

	var findings []models.Finding
	for _, chunk := range chunks {
		findings = append(findings, c.checkParentLink(documentID, chunk, byID)...)
		findings = append(findings, c.checkScores(documentID, chunk)...)
		findings = append(findings, c.checkPath(documentID, chunk, byID)...)

		edgeFindings, err := c.checkEdgeSymmetry(ctx, documentID, chunk)
		if err != nil {
			return nil, err
		}
		findings = append(findings, edgeFindings...)
	}
	return findings, nil
}

// checkParentLink reports orphaned parent references and parent-chain
// cycles. Traversal is depth-capped; an uncapped walk over a corrupt
// hierarchy would never terminate.
func (c *HierarchyConsistencyChecker) checkParentLink(documentID string, chunk *models.Chunk, byID map[string]*models.Chunk) []models.Finding {
	var findings []models.Finding

	if chunk.ParentChunkID != nil {
		if _, ok := byID[*chunk.ParentChunkID]; !ok {
			findings = append(findings, newFinding(models.FindingOrphanedParent, documentID, chunk.ChunkID,
				fmt.Sprintf("parent_chunk_id %s references a missing chunk", *chunk.ParentChunkID), "error", nil))
		}
	}

	seen := map[string]bool{chunk.ChunkID: true}
	current := chunk
	for depth := 0; current.ParentChunkID != nil; depth++ {
		if depth >= maxHierarchyDepth {
			findings = append(findings, newFinding(models.FindingCycle, documentID, chunk.ChunkID,
				fmt.Sprintf("parent chain exceeds depth cap %d", maxHierarchyDepth), "error", nil))
			break
		}
		parent, ok := byID[*current.ParentChunkID]
		if !ok {
			break
		}
		if seen[parent.ChunkID] {
			findings = append(findings, newFinding(models.FindingCycle, documentID, chunk.ChunkID,
				"parent chain revisits chunk "+parent.ChunkID, "error",
				map[string]interface{}{"cycle_chunk_id": parent.ChunkID}))
			break
		}
		seen[parent.ChunkID] = true
		current = parent
	}

	return findings
}

func (c *HierarchyConsistencyChecker) checkScores(documentID string, chunk *models.Chunk) []models.Finding {
	var findings []models.Finding
	if chunk.QualityScore < 0 || chunk.QualityScore > 1 {
		findings = append(findings, newFinding(models.FindingScoreOutOfRange, documentID, chunk.ChunkID,
			fmt.Sprintf("quality score %.4f outside [0,1]", chunk.QualityScore), "warning", nil))
	}
	if chunk.CoherenceScore < 0 || chunk.CoherenceScore > 1 {
		findings = append(findings, newFinding(models.FindingScoreOutOfRange, documentID, chunk.ChunkID,
			fmt.Sprintf("coherence score %.4f outside [0,1]", chunk.CoherenceScore), "warning", nil))
	}
	return findings
}

// checkPath verifies that hierarchy_path ends at the chunk itself and is
// the parent's path plus one element
func (c *HierarchyConsistencyChecker) checkPath(documentID string, chunk *models.Chunk, byID map[string]*models.Chunk) []models.Finding {
	path := chunk.HierarchyPath
	if len(path) == 0 || path[len(path)-1] != chunk.ChunkID {
		return []models.Finding{newFinding(models.FindingPathMismatch, documentID, chunk.ChunkID,
			"hierarchy_path does not terminate at the chunk", "warning", nil)}
	}
	if chunk.ParentChunkID == nil {
		return nil
	}
	parent, ok := byID[*chunk.ParentChunkID]
	if !ok {
		return nil // already reported as an orphan
	}
	if len(path) != len(parent.HierarchyPath)+1 {
		return []models.Finding{newFinding(models.FindingPathMismatch, documentID, chunk.ChunkID,
			"hierarchy_path length does not extend the parent's path", "warning", nil)}
	}
	return nil
}

// checkEdgeSymmetry verifies that the edge table mirrors parent links:
// every parent field has its edge pair and every directed edge has its
// reverse counterpart
func (c *HierarchyConsistencyChecker) checkEdgeSymmetry(ctx context.Context, documentID string, chunk *models.Chunk) ([]models.Finding, error) {
	edges, err := c.store.ListRelationships(ctx, chunk.ChunkID)
	if err != nil {
		return nil, err
	}

	var findings []models.Finding

	if chunk.ParentChunkID != nil {
		hasParentEdge := false
		for _, e := range edges {
			if e.SourceChunkID == chunk.ChunkID && e.Type == models.RelationshipTypeParent && e.TargetChunkID == *chunk.ParentChunkID {
				hasParentEdge = true
				break
			}
		}
		if !hasParentEdge {
			findings = append(findings, newFinding(models.FindingMissingEdgePair, documentID, chunk.ChunkID,
				"parent_chunk_id set but parent edge missing", "error",
				map[string]interface{}{"parent_chunk_id": *chunk.ParentChunkID}))
		}
	}

	for _, e := range edges {
		if e.SourceChunkID != chunk.ChunkID {
			continue
		}
		reverse, err := c.store.ListRelationships(ctx, e.TargetChunkID)
		if err != nil {
			return nil, err
		}
		if !hasReverseEdge(reverse, e) {
			findings = append(findings, newFinding(models.FindingAsymmetricEdge, documentID, chunk.ChunkID,
				fmt.Sprintf("%s edge to %s has no reverse counterpart", e.Type, e.TargetChunkID), "error",
				map[string]interface{}{"target_chunk_id": e.TargetChunkID, "edge_type": string(e.Type)}))
		}
	}

	return findings, nil
}

// hasReverseEdge reports whether edges contains the counterpart of e:
// sibling mirrors as sibling, parent mirrors as child and vice versa
func hasReverseEdge(edges []models.Relationship, e models.Relationship) bool {
	want := models.RelationshipTypeSibling
	switch e.Type {
	case models.RelationshipTypeParent:
		want = models.RelationshipTypeChild
	case models.RelationshipTypeChild:
		want = models.RelationshipTypeParent
	}
	for _, r := range edges {
		if r.SourceChunkID == e.TargetChunkID && r.TargetChunkID == e.SourceChunkID && r.Type == want {
			return true
		}
	}
	return false
}

func newFinding(typ models.FindingType, documentID, chunkID, description, severity string, details map[string]interface{}) models.Finding {
	return models.Finding{
		Type:        typ,
		DocumentID:  documentID,
		ChunkID:     chunkID,
		Description: description,
		Details:     details,
		Severity:    severity,
		DetectedAt:  time.Now(),
	}
}
