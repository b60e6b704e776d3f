package features

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"localrag/internal/embedding"
	"localrag/internal/similarity"
)

// Layout of the feature vector.
const (
	charOffset    = 32 // first code point of the character histogram
	charFeatures  = 128
	wordOffset    = charFeatures
	wordFeatures  = 128
	statsOffset   = wordOffset + wordFeatures
	maxWordLength = 20.0
)

// Embedder is a deterministic bag-of-characters / bag-of-words embedder.
// It needs no model and no corpus preparation.
type Embedder struct{}

// NewEmbedder creates a feature embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "features" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return embedding.Dimension }

// Embed computes the feature embedding for text. It never fails.
func (e *Embedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	return GenerateEmbedding(text), nil
}

// GenerateEmbeddings embeds each text in order.
func GenerateEmbeddings(texts []string) []embedding.Vector {
	out := make([]embedding.Vector, len(texts))
	for i, t := range texts {
		out[i] = GenerateEmbedding(t)
	}
	return out
}

// GenerateEmbedding returns the L2-normalized feature vector of text.
// Empty text yields the zero vector.
func GenerateEmbedding(text string) embedding.Vector {
	vec := make(embedding.Vector, embedding.Dimension)
	length := utf8.RuneCountInString(text)
	if length == 0 {
		return vec
	}
	n := float64(length)
	normalized := normalize(text)

	counts := make(map[rune]int)
	for _, r := range normalized {
		counts[r]++
	}
	for i := 0; i < charFeatures; i++ {
		vec[i] = float64(counts[rune(charOffset+i)]) / n
	}

	words := strings.Fields(normalized)
	for i, w := range topWords(words, wordFeatures) {
		vec[wordOffset+i] = float64(utf8.RuneCountInString(w)) / maxWordLength
	}

	var upper, digits int
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	vec[statsOffset] = n / 10000
	vec[statsOffset+1] = float64(len(words)) / 1000
	vec[statsOffset+2] = float64(upper) / n
	vec[statsOffset+3] = float64(digits) / n

	if mag := similarity.Norm(vec); mag > 0 {
		for i := range vec {
			vec[i] /= mag
		}
	}
	return vec
}

// normalize lowercases text, decomposes it (NFD) and drops the combining
// diacritical marks block.
func normalize(text string) string {
	lower := strings.ToLower(text)
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningMark)))
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

func isCombiningMark(r rune) bool { return r >= 0x0300 && r <= 0x036F }

// topWords returns up to limit distinct words by descending frequency.
// Equal frequencies keep first-seen order.
func topWords(words []string, limit int) []string {
	freq := make(map[string]int, len(words))
	var distinct []string
	for _, w := range words {
		if freq[w] == 0 {
			distinct = append(distinct, w)
		}
		freq[w]++
	}
	sort.SliceStable(distinct, func(i, j int) bool { return freq[distinct[i]] > freq[distinct[j]] })
	if len(distinct) > limit {
		distinct = distinct[:limit]
	}
	return distinct
}
