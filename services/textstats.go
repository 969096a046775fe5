package services

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ContentHash returns the SHA256 hex digest of chunk content. It must be
// recomputed whenever content changes.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)
}

// CountWords counts whitespace-delimited words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// EstimateTokens approximates the token count of text. The real tokenizer
// lives behind the remote embedding function; a 4/3 words-to-tokens ratio
// is a stable, deterministic proxy that keeps chunking reproducible.
func EstimateTokens(text string) int {
	words := CountWords(text)
	if words == 0 {
		return 0
	}
	tokens := (words*4 + 2) / 3
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// SplitSentences splits text on sentence terminators. Returns trimmed,
// non-empty sentence strings.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[start:m[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = m[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// EndsWithTerminator reports whether text ends in terminal punctuation,
// ignoring trailing quotes, brackets and whitespace
func EndsWithTerminator(text string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(text), `"')]`)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// connectiveMarkers are cohesion cues used by the coherence score
var connectiveMarkers = []string{
	"however", "therefore", "moreover", "furthermore", "consequently",
	"additionally", "meanwhile", "similarly", "in contrast", "for example",
	"in addition", "as a result", "on the other hand", "first", "second",
	"finally", "because", "although", "thus",
}

// CountConnectives counts cohesion markers present in text
func CountConnectives(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, marker := range connectiveMarkers {
		count += strings.Count(lower, marker)
	}
	return count
}

// TopKeywords returns up to max frequent non-stopword terms, ordered by
// frequency then first appearance. Used to build the semantic embedding
// input.
func TopKeywords(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	position := 0
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, `.,;:!?"'()[]{}`)
		if len(word) < 4 || stopwords[word] {
			continue
		}
		if _, ok := counts[word]; !ok {
			firstSeen[word] = position
		}
		counts[word]++
		position++
	}

	keywords := make([]string, 0, len(counts))
	for word := range counts {
		keywords = append(keywords, word)
	}
	// selection sort by (count desc, first appearance asc); keyword sets
	// are small enough that simplicity wins
	for i := 0; i < len(keywords); i++ {
		best := i
		for j := i + 1; j < len(keywords); j++ {
			ci, cj := counts[keywords[best]], counts[keywords[j]]
			if cj > ci || (cj == ci && firstSeen[keywords[j]] < firstSeen[keywords[best]]) {
				best = j
			}
		}
		keywords[i], keywords[best] = keywords[best], keywords[i]
	}

	if len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"were": true, "been": true, "their": true, "which": true, "would": true,
	"there": true, "about": true, "other": true, "these": true, "those": true,
	"into": true, "more": true, "some": true, "such": true, "than": true,
	"then": true, "them": true, "they": true, "when": true, "where": true,
	"will": true, "your": true, "what": true, "also": true, "each": true,
}
