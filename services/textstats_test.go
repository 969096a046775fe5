package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("   "))
	assert.Equal(t, 2, EstimateTokens("one"))
	// 4/3 words-to-tokens ratio, rounded
	assert.Equal(t, 4, EstimateTokens("one two three"))
	assert.Equal(t, 8, EstimateTokens("one two three four five six"))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Just one sentence.", []string{"Just one sentence."}},
		{"multiple", "First. Second! Third?", []string{"First.", "Second!", "Third?"}},
		{"unterminated tail", "Complete one. trailing fragment", []string{"Complete one.", "trailing fragment"}},
		{"closing quote", `He said "done." Then left.`, []string{`He said "done."`, "Then left."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestEndsWithTerminator(t *testing.T) {
	assert.True(t, EndsWithTerminator("Done."))
	assert.True(t, EndsWithTerminator("Really?  "))
	assert.True(t, EndsWithTerminator(`He said "stop."`))
	assert.False(t, EndsWithTerminator("unfinished"))
	assert.False(t, EndsWithTerminator(""))
}

func TestTopKeywords(t *testing.T) {
	text := "Indexing indexing indexing makes retrieval fast. Retrieval quality matters for retrieval."
	keywords := TopKeywords(text, 3)

	assert.Len(t, keywords, 3)
	assert.Equal(t, "retrieval", keywords[1])
	assert.Equal(t, "indexing", keywords[0])
}

func TestContentHash_Stable(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash(""), 64)
}
