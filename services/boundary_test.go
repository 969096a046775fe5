package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chunk-index/models"
)

func TestDetectBoundaries_EmptyInput(t *testing.T) {
	assert.Nil(t, DetectBoundaries(""))
	assert.Nil(t, DetectBoundaries("   \n\t  "))
}

func TestDetectBoundaries_DocumentStart(t *testing.T) {
	boundaries := DetectBoundaries("Hello world.")

	require.NotEmpty(t, boundaries)
	assert.Equal(t, 0, boundaries[0].Offset)
	assert.Equal(t, models.ScaleDocument, boundaries[0].Scale)
}

func TestDetectBoundaries_Headings(t *testing.T) {
	text := "intro text here\n\n# Title\n\nbody text follows\n\n### Deep heading\n\nmore body"
	boundaries := DetectBoundaries(text)

	sections := BoundariesAt(boundaries, models.ScaleSection)
	require.Len(t, sections, 2)
	assert.Equal(t, strings.Index(text, "# Title"), sections[0].Offset)
	assert.Equal(t, 1, sections[0].Depth)
	assert.Equal(t, strings.Index(text, "### Deep"), sections[1].Offset)
	assert.Equal(t, 3, sections[1].Depth)
}

func TestDetectBoundaries_ListItems(t *testing.T) {
	text := "Shopping list:\n- apples and pears\n- oranges and lemons\n1. numbered entry"
	boundaries := DetectBoundaries(text)

	paragraphs := BoundariesAt(boundaries, models.ScaleParagraph)
	offsets := make([]int, 0, len(paragraphs))
	for _, b := range paragraphs {
		offsets = append(offsets, b.Offset)
	}
	assert.Contains(t, offsets, strings.Index(text, "- apples"))
	assert.Contains(t, offsets, strings.Index(text, "- oranges"))
	assert.Contains(t, offsets, strings.Index(text, "1. numbered"))
}

func TestDetectBoundaries_Sentences(t *testing.T) {
	text := "First sentence here. Second sentence follows! Third one?"
	boundaries := DetectBoundaries(text)

	sentences := BoundariesAt(boundaries, models.ScaleSentence)
	require.Len(t, sentences, 2)
	assert.Equal(t, strings.Index(text, "Second"), sentences[0].Offset)
	assert.Equal(t, strings.Index(text, "Third"), sentences[1].Offset)
}

func TestDetectBoundaries_CoarserScaleWinsTies(t *testing.T) {
	// the heading starts at offset 0, where the document boundary sits
	boundaries := DetectBoundaries("# Heading\n\nbody text")

	countAtZero := 0
	for _, b := range boundaries {
		if b.Offset == 0 {
			countAtZero++
			assert.Equal(t, models.ScaleDocument, b.Scale)
		}
	}
	assert.Equal(t, 1, countAtZero)
}

func TestDetectBoundaries_Deterministic(t *testing.T) {
	text := "# One\n\nAlpha beta. Gamma delta.\n\n## Two\n\n- item one\n- item two"

	first := DetectBoundaries(text)
	second := DetectBoundaries(text)
	assert.Equal(t, first, second)
}
