package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"document-chunk-index/config"
	"document-chunk-index/models"
)

// HierarchicalChunker builds a multi-resolution chunk tree from raw
// document text. Chunking is deterministic: the same document and the same
// configuration always produce the same node IDs and content, so re-running
// ingestion updates chunks in place instead of duplicating them.
type HierarchicalChunker struct {
	cfg    config.ChunkingConfig
	logger Logger
}

// NewHierarchicalChunker creates a new chunker
func NewHierarchicalChunker(cfg config.ChunkingConfig, logger Logger) *HierarchicalChunker {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &HierarchicalChunker{cfg: cfg, logger: logger}
}

// span is a half-open byte range of the document text
type span struct {
	start, end int
	// depth carries heading depth for section spans
	depth int
}

// unit is one chunk-to-be in document order
type unit struct {
	span  span
	scale models.Scale
	// rank orders coarseness for parent assignment; section rank encodes
	// heading depth so deeper headings nest under shallower ones
	rank int
}

const (
	rankDocument  = 0
	rankParagraph = 7
	rankSentence  = 8
)

// Chunk implements Chunker. It never fails on empty or malformed input:
// text without any usable boundary degrades to a single sentence-scale
// chunk, and empty text yields no chunks.
func (c *HierarchicalChunker) Chunk(documentID, text string) ([]*models.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	boundaries := DetectBoundaries(text)
	units := c.collectUnits(text, boundaries)
	chunks := c.assemble(documentID, text, units)
	c.applyOverlap(chunks)

	c.logger.Debug("chunked document",
		String("document_id", documentID),
		Int("chunks", len(chunks)))
	return chunks, nil
}

// collectUnits walks the document once and emits chunk units in document
// order: optional document root, sections where headings exist, paragraph
// blocks, and sentence groups for paragraphs that overflow their scale.
func (c *HierarchicalChunker) collectUnits(text string, boundaries []Boundary) []unit {
	sections := c.sectionSpans(text, boundaries)
	hasHeadings := len(sections) > 0

	var units []unit

	if !hasHeadings {
		blocks := c.paragraphSpans(text, boundaries, span{start: 0, end: len(text)})
		if len(blocks) <= 1 {
			units = append(units, c.loneBlockUnits(text, boundaries)...)
			return units
		}
		for _, block := range blocks {
			units = append(units, c.paragraphUnits(text, boundaries, block)...)
		}
		return units
	}

	// A document chunk is only worth emitting as a root over several
	// sections; a single-section document keeps the section as its root.
	if len(sections) >= 2 {
		units = append(units, unit{
			span:  span{start: 0, end: len(text)},
			scale: models.ScaleDocument,
			rank:  rankDocument,
		})
	}

	for _, sec := range sections {
		units = append(units, c.sectionUnits(text, boundaries, sec)...)
	}
	return units
}

// loneBlockUnits handles the structureless document: one block, no
// headings. A block with at most one sentence becomes exactly one
// sentence-scale chunk; a multi-sentence block becomes a paragraph root
// with sentence children only when it overflows the paragraph budget.
func (c *HierarchicalChunker) loneBlockUnits(text string, boundaries []Boundary) []unit {
	whole := span{start: 0, end: len(text)}
	sentences := c.sentenceSpans(text, boundaries, whole)
	if len(sentences) <= 1 {
		return []unit{{span: whole, scale: models.ScaleSentence, rank: rankSentence}}
	}
	return c.paragraphUnits(text, boundaries, whole)
}

// sectionUnits emits one or more section chunks for a heading span,
// splitting overlong sections at paragraph boundaries, followed by the
// section's paragraph units.
func (c *HierarchicalChunker) sectionUnits(text string, boundaries []Boundary, sec span) []unit {
	limits := c.limits(models.ScaleSection)
	rank := sec.depth
	if rank < 1 {
		rank = 1
	}
	if rank > rankParagraph-1 {
		rank = rankParagraph - 1
	}

	pieces := []span{sec}
	if spanTokens(text, sec) > limits.MaxTokens {
		pieces = c.splitAtStarts(text, sec, limits.MaxTokens, c.startsWithin(boundaries, models.ScaleParagraph, sec))
	}

	var units []unit
	for _, piece := range pieces {
		piece.depth = sec.depth
		units = append(units, unit{span: piece, scale: models.ScaleSection, rank: rank})
		// the heading line belongs to the section chunk only
		body := span{start: sectionBodyStart(text, piece), end: piece.end}
		if body.start >= body.end {
			continue
		}
		for _, block := range c.paragraphSpans(text, boundaries, body) {
			units = append(units, c.paragraphUnits(text, boundaries, block)...)
		}
	}
	return units
}

// openingHeading reports a heading on the document's first non-blank line
func openingHeading(text string) *Boundary {
	offset := leadingWhitespace(text)
	rest := text[offset:]
	line := rest
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		line = rest[:i]
	}
	if m := atxHeadingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		return &Boundary{Offset: offset, Scale: models.ScaleSection, Depth: len(m[1]), Marker: m[1]}
	}
	return nil
}

// sectionBodyStart returns the offset just past the section's heading
// line, or the span start when the section has no heading (preamble)
func sectionBodyStart(text string, sec span) int {
	rest := text[sec.start:sec.end]
	line := rest
	newline := strings.IndexByte(rest, '\n')
	if newline >= 0 {
		line = rest[:newline]
	}
	if !atxHeadingRe.MatchString(strings.TrimSpace(line)) {
		return sec.start
	}
	if newline < 0 {
		return sec.end
	}
	return sec.start + newline + 1
}

// paragraphUnits emits a paragraph chunk for a block, splitting overlong
// blocks at sentence boundaries and emitting sentence children for each
// overflowing piece.
func (c *HierarchicalChunker) paragraphUnits(text string, boundaries []Boundary, block span) []unit {
	limits := c.limits(models.ScaleParagraph)

	pieces := []span{block}
	overflow := spanTokens(text, block) > limits.MaxTokens
	if overflow {
		pieces = c.splitAtStarts(text, block, limits.MaxTokens, c.startsWithin(boundaries, models.ScaleSentence, block))
	}

	var units []unit
	for _, piece := range pieces {
		units = append(units, unit{span: piece, scale: models.ScaleParagraph, rank: rankParagraph})
		if !overflow {
			continue
		}
		sentences := c.sentenceSpans(text, boundaries, piece)
		if len(sentences) < 2 {
			continue
		}
		for _, sent := range sentences {
			units = append(units, unit{span: sent, scale: models.ScaleSentence, rank: rankSentence})
		}
	}
	return units
}

// sectionSpans builds section spans from heading boundaries. Text before
// the first heading becomes a headingless preamble section.
func (c *HierarchicalChunker) sectionSpans(text string, boundaries []Boundary) []span {
	headings := BoundariesAt(boundaries, models.ScaleSection)
	// a heading on the opening line is shadowed by the document boundary
	// in the normalized list; recover it from the text
	if oh := openingHeading(text); oh != nil {
		if len(headings) == 0 || headings[0].Offset > oh.Offset {
			headings = append([]Boundary{*oh}, headings...)
		}
	}
	if len(headings) == 0 {
		return nil
	}

	var spans []span
	if strings.TrimSpace(text[:headings[0].Offset]) != "" {
		spans = append(spans, span{start: 0, end: headings[0].Offset, depth: 1})
	}
	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].Offset
		}
		spans = append(spans, span{start: h.Offset, end: end, depth: h.Depth})
	}
	return c.mergeForward(text, spans, c.limits(models.ScaleSection).MinTokens)
}

// paragraphSpans builds paragraph block spans inside a region
func (c *HierarchicalChunker) paragraphSpans(text string, boundaries []Boundary, region span) []span {
	spans := spansFromStarts(c.regionStarts(text, boundaries, models.ScaleParagraph, region), region.end)
	return c.mergeForward(text, spans, c.limits(models.ScaleParagraph).MinTokens)
}

// sentenceSpans builds sentence spans inside a region, merging fragments
// below the sentence minimum into the following sentence
func (c *HierarchicalChunker) sentenceSpans(text string, boundaries []Boundary, region span) []span {
	spans := spansFromStarts(c.regionStarts(text, boundaries, models.ScaleSentence, region), region.end)
	return c.mergeForward(text, spans, c.limits(models.ScaleSentence).MinTokens)
}

// regionStarts lists unit start offsets of one scale inside a region. The
// region start itself always opens the first unit: a coarser boundary at
// the same offset would otherwise swallow it.
func (c *HierarchicalChunker) regionStarts(text string, boundaries []Boundary, scale models.Scale, region span) []int {
	starts := []int{region.start}
	for _, b := range boundaries {
		if b.Scale != scale || b.Offset <= region.start || b.Offset >= region.end {
			continue
		}
		// finer-scale boundaries between units are irrelevant here; the
		// boundary list is already deduped coarsest-first per offset
		starts = append(starts, b.Offset)
	}
	return starts
}

// startsWithin lists boundary offsets of one scale strictly inside a span
func (c *HierarchicalChunker) startsWithin(boundaries []Boundary, scale models.Scale, region span) []int {
	var starts []int
	for _, b := range boundaries {
		if b.Scale == scale && b.Offset > region.start && b.Offset < region.end {
			starts = append(starts, b.Offset)
		}
	}
	return starts
}

// spansFromStarts converts start offsets to half-open spans ending at end,
// dropping whitespace-only spans later in assembly
func spansFromStarts(starts []int, end int) []span {
	var spans []span
	for i, s := range starts {
		e := end
		if i+1 < len(starts) {
			e = starts[i+1]
		}
		if s < e {
			spans = append(spans, span{start: s, end: e})
		}
	}
	return spans
}

// mergeForward merges spans below minTokens into the following span, per
// the under-minimum policy. The final span may stay below the minimum when
// nothing follows it.
func (c *HierarchicalChunker) mergeForward(text string, spans []span, minTokens int) []span {
	var out []span
	for i := 0; i < len(spans); i++ {
		merged := spans[i]
		for spanTokens(text, merged) < minTokens && i+1 < len(spans) {
			i++
			merged.end = spans[i].end
		}
		out = append(out, merged)
	}
	return out
}

// splitAtStarts splits an over-budget span at the nearest lower-scale
// boundaries so each piece stays within maxTokens. A span with no inner
// boundary cannot be split and is kept whole.
func (c *HierarchicalChunker) splitAtStarts(text string, sp span, maxTokens int, innerStarts []int) []span {
	if len(innerStarts) == 0 {
		return []span{sp}
	}

	var pieces []span
	pieceStart := sp.start
	for _, cut := range innerStarts {
		candidate := span{start: pieceStart, end: cut}
		if spanTokens(text, span{start: pieceStart, end: cut}) == 0 {
			continue
		}
		// extendable: only cut once the piece would overflow
		if spanTokens(text, span{start: pieceStart, end: nextEnd(innerStarts, cut, sp.end)}) > maxTokens {
			pieces = append(pieces, candidate)
			pieceStart = cut
		}
	}
	pieces = append(pieces, span{start: pieceStart, end: sp.end})
	return pieces
}

func nextEnd(starts []int, after int, fallback int) int {
	for _, s := range starts {
		if s > after {
			return s
		}
	}
	return fallback
}

func spanTokens(text string, sp span) int {
	return EstimateTokens(text[sp.start:sp.end])
}

// assemble turns ordered units into chunks: parent assignment via a
// coarseness stack over document order, deterministic node and chunk IDs,
// hierarchy levels, sibling sequence numbers and hierarchy paths.
func (c *HierarchicalChunker) assemble(documentID, text string, units []unit) []*models.Chunk {
	now := time.Now()
	chunks := make([]*models.Chunk, 0, len(units))

	type stacked struct {
		chunk *models.Chunk
		rank  int
	}
	var stack []stacked
	levelOrdinals := make(map[int]int)
	siblingCounts := make(map[string]int)

	for _, u := range units {
		content := strings.TrimSpace(text[u.span.start:u.span.end])
		if content == "" {
			continue
		}

		// parent = nearest preceding strictly coarser unit
		for len(stack) > 0 && stack[len(stack)-1].rank >= u.rank {
			stack = stack[:len(stack)-1]
		}

		var parent *models.Chunk
		if len(stack) > 0 {
			parent = stack[len(stack)-1].chunk
		}

		level := 0
		parentKey := "root"
		var parentID *string
		if parent != nil {
			level = parent.HierarchyLevel + 1
			parentKey = parent.ChunkID
			pid := parent.ChunkID
			parentID = &pid
		}

		ordinal := levelOrdinals[level]
		levelOrdinals[level]++
		seq := siblingCounts[parentKey]
		siblingCounts[parentKey]++

		nodeID := deterministicNodeID(u.scale, level, ordinal)
		chunkID := deterministicChunkID(documentID, nodeID)

		path := make([]string, 0, level+1)
		if parent != nil {
			path = append(path, parent.HierarchyPath...)
		}
		path = append(path, chunkID)

		chunk := &models.Chunk{
			ChunkID:        chunkID,
			DocumentID:     documentID,
			NodeID:         nodeID,
			Content:        content,
			ContentHash:    ContentHash(content),
			TokenCount:     EstimateTokens(content),
			CharacterCount: len(content),
			WordCount:      CountWords(content),
			Scale:          u.scale,
			HierarchyLevel: level,
			SequenceOrder:  seq,
			HierarchyPath:  path,
			ParentChunkID:  parentID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		chunks = append(chunks, chunk)
		stack = append(stack, stacked{chunk: chunk, rank: u.rank})
	}

	return chunks
}

// deterministicNodeID encodes scale and position; the per-level ordinal
// keeps it unique within the document
func deterministicNodeID(scale models.Scale, level, ordinal int) string {
	return fmt.Sprintf("%s-l%d-%d", scale.Code(), level, ordinal)
}

// deterministicChunkID derives a stable UUID from document and node
// identity, so re-chunking reuses the same chunk IDs
func deterministicChunkID(documentID, nodeID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(documentID+"/"+nodeID)).String()
}

// applyOverlap prepends trailing context from the previous sibling to each
// chunk whose scale is configured with a nonzero overlap. The context is
// duplicated content, taken from the sibling's pre-overlap text.
func (c *HierarchicalChunker) applyOverlap(chunks []*models.Chunk) {
	originals := make(map[string]string, len(chunks))
	for _, chunk := range chunks {
		originals[chunk.ChunkID] = chunk.Content
	}

	byParent := make(map[string][]*models.Chunk)
	for _, chunk := range chunks {
		key := "root"
		if chunk.ParentChunkID != nil {
			key = *chunk.ParentChunkID
		}
		byParent[key] = append(byParent[key], chunk)
	}

	for _, siblings := range byParent {
		for i := 1; i < len(siblings); i++ {
			chunk := siblings[i]
			limits := c.limits(chunk.Scale)
			if limits.OverlapTokens <= 0 {
				continue
			}
			prev := siblings[i-1]
			if prev.Scale != chunk.Scale {
				continue
			}
			tail := trailingWords(originals[prev.ChunkID], limits.OverlapTokens*3/4)
			if tail == "" {
				continue
			}
			chunk.Content = tail + " " + chunk.Content
			chunk.TokenCount = EstimateTokens(chunk.Content)
			chunk.CharacterCount = len(chunk.Content)
			chunk.WordCount = CountWords(chunk.Content)
			chunk.ContentHash = ContentHash(chunk.Content)
		}
	}
}

// trailingWords returns the last n whitespace-delimited words of text
func trailingWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[len(words)-n:], " ")
}

func (c *HierarchicalChunker) limits(scale models.Scale) config.ScaleLimits {
	limits, ok := c.cfg.Limits(string(scale))
	if !ok {
		return config.DefaultChunkingConfig().Scales[string(scale)]
	}
	return limits
}
