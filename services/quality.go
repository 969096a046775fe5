package services

import (
	"document-chunk-index/models"
)

// HeuristicQualityScorer computes quality and coherence scores from cheap
// lexical statistics. Scoring is pure: no I/O, no randomness, identical
// input always yields identical scores.
type HeuristicQualityScorer struct{}

// NewHeuristicQualityScorer creates a new scorer
func NewHeuristicQualityScorer() *HeuristicQualityScorer {
	return &HeuristicQualityScorer{}
}

// Score implements QualityScorer. Quality starts at a neutral 0.5 and is
// adjusted by token band, character band, words-per-sentence band and
// terminal punctuation; coherence starts at 0.6 and grows with sentence
// count and connective markers. Both results are clamped to [0, 1].
func (s *HeuristicQualityScorer) Score(chunk *models.Chunk) models.QualityResult {
	content := chunk.Content
	sentences := SplitSentences(content)
	words := CountWords(content)
	connectives := CountConnectives(content)

	quality := 0.5

	// token band: a retrievable unit should be substantial but bounded
	switch tokens := chunk.TokenCount; {
	case tokens >= 50 && tokens <= 500:
		quality += 0.2
	case tokens >= 20 && tokens < 50:
		quality += 0.1
	case tokens > 500 && tokens <= 1000:
		quality += 0.05
	case tokens < 5:
		quality -= 0.2
	}

	// character band
	switch chars := len(content); {
	case chars >= 200 && chars <= 2000:
		quality += 0.1
	case chars < 30:
		quality -= 0.1
	}

	// readable sentence length
	if len(sentences) > 0 {
		wps := float64(words) / float64(len(sentences))
		if wps >= 8 && wps <= 25 {
			quality += 0.1
		} else if wps > 40 {
			quality -= 0.1
		}
	}

	if EndsWithTerminator(content) {
		quality += 0.1
	} else {
		quality -= 0.05
	}

	coherence := 0.6
	if len(sentences) >= 2 {
		coherence += 0.1
	}
	if len(sentences) >= 4 {
		coherence += 0.05
	}
	if connectives > 0 {
		increment := 0.05 * float64(connectives)
		if increment > 0.2 {
			increment = 0.2
		}
		coherence += increment
	}

	return models.QualityResult{
		QualityScore:   clamp01(quality),
		CoherenceScore: clamp01(coherence),
		Statistics: map[string]interface{}{
			"sentence_count":   len(sentences),
			"word_count":       words,
			"connective_count": connectives,
			"ends_complete":    EndsWithTerminator(content),
		},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
