package services

import (
	"regexp"
	"sort"
	"strings"

	"document-chunk-index/models"
)

// Boundary is one proposed segmentation point: the byte offset where a unit
// of the tagged scale starts.
type Boundary struct {
	Offset int
	Scale  models.Scale
	// Depth is the heading depth for section boundaries (1 = top level)
	Depth  int
	Marker string
}

var (
	atxHeadingRe = regexp.MustCompile(`^(#{1,6})\s+\S`)
	listItemRe   = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.|[a-z]\)|[ivx]+\.)\s+`)
	// sentence terminator optionally followed by closing quotes/brackets,
	// then whitespace or end of text
	sentenceEndRe = regexp.MustCompile(`[.!?]+["')\]]*(\s+|$)`)
)

// DetectBoundaries scans raw document text and proposes segmentation
// boundaries at four scales. It is a pure function of the text: no I/O,
// deterministic for identical input. When several heuristics fire at the
// same offset the coarser scale wins.
//
// Heuristics in priority order: heading markers (section, sub-level by
// heading depth), list or numbered-item markers (paragraph), blank-line
// separated blocks (paragraph), sentence terminators (sentence).
func DetectBoundaries(text string) []Boundary {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	boundaries := []Boundary{{Offset: 0, Scale: models.ScaleDocument}}

	offset := 0
	blankPrev := true
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blankPrev = true
			offset += len(line)
			continue
		}

		lineStart := offset + leadingWhitespace(line)
		if m := atxHeadingRe.FindStringSubmatch(trimmed); m != nil {
			boundaries = append(boundaries, Boundary{
				Offset: lineStart,
				Scale:  models.ScaleSection,
				Depth:  len(m[1]),
				Marker: m[1],
			})
		} else if listItemRe.MatchString(line) {
			boundaries = append(boundaries, Boundary{
				Offset: lineStart,
				Scale:  models.ScaleParagraph,
				Marker: "list",
			})
		} else if blankPrev {
			boundaries = append(boundaries, Boundary{
				Offset: lineStart,
				Scale:  models.ScaleParagraph,
				Marker: "block",
			})
		}

		blankPrev = false
		offset += len(line)
	}

	// Sentence starts: position after each terminator that is followed by
	// more text
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		start := m[1]
		if start >= len(text) {
			continue
		}
		if strings.TrimSpace(text[start:]) == "" {
			continue
		}
		boundaries = append(boundaries, Boundary{
			Offset: start + leadingWhitespace(text[start:]),
			Scale:  models.ScaleSentence,
			Marker: "sentence",
		})
	}

	return normalizeBoundaries(boundaries)
}

// normalizeBoundaries sorts by offset and collapses same-offset duplicates
// toward the coarser scale
func normalizeBoundaries(boundaries []Boundary) []Boundary {
	sort.SliceStable(boundaries, func(i, j int) bool {
		if boundaries[i].Offset != boundaries[j].Offset {
			return boundaries[i].Offset < boundaries[j].Offset
		}
		return boundaries[i].Scale.Rank() < boundaries[j].Scale.Rank()
	})

	out := boundaries[:0]
	lastOffset := -1
	for _, b := range boundaries {
		if b.Offset == lastOffset {
			continue // coarser boundary already kept for this offset
		}
		out = append(out, b)
		lastOffset = b.Offset
	}
	return out
}

// BoundariesAt filters boundaries to one scale
func BoundariesAt(boundaries []Boundary, scale models.Scale) []Boundary {
	var out []Boundary
	for _, b := range boundaries {
		if b.Scale == scale {
			out = append(out, b)
		}
	}
	return out
}

func leadingWhitespace(s string) int {
	for i, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return i
		}
	}
	return len(s)
}
