package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"github.com/concordlabs/concord/pkg/models"
)

// DefaultSimilarityThreshold is the cosine/Jaccard score above which two
// free-text answers are treated as the same vote.
const DefaultSimilarityThreshold = 0.70

// Embedder turns free text into a vector for similarity comparison.
// Implementations wrap an embedding model endpoint; the engine also works
// without one by falling back to lexical similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// digest returns the canonical signature for exact-match comparison.
// Structured payloads are normalized by whitespace trimming only; agents
// producing structured output are expected to emit canonical form.
func digest(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])[:16]
}

// cosine returns the cosine similarity of two vectors, or 0 when either is
// empty or the dimensions disagree.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenSet lowercases and splits text into a set of word tokens.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]{}")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// jaccard returns the Jaccard similarity of the token sets of two texts.
// Used as the lexical fallback when no embeddings are available.
func jaccard(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// similarity scores two answers in [0, 1]. Structured answers only ever
// match exactly; free text uses embeddings when both sides carry one and
// lexical overlap otherwise.
func similarity(a, b *models.AgentAnswer) float64 {
	if a.Structured || b.Structured {
		if digest(a.Content) == digest(b.Content) {
			return 1
		}
		return 0
	}
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosine(a.Embedding, b.Embedding)
	}
	return jaccard(a.Content, b.Content)
}
