package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size used when none is configured.
const DefaultHashDimensions = 512

// stopwords carry little meaning for question matching. They are dropped
// unless a text consists of nothing else.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "do": {}, "does": {}, "did": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "for": {}, "and": {}, "or": {}, "it": {}, "its": {},
	"me": {}, "my": {}, "i": {}, "you": {}, "your": {}, "please": {},
	"can": {}, "could": {}, "would": {}, "tell": {}, "about": {},
}

// HashEmbedder is a local, dependency-free embedder. Each token is hashed
// into one of Dimension buckets with a hashed sign, then the vector is
// L2-normalised. Identical token sets give identical vectors, and texts that
// share content words score high under cosine similarity.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder. Dimensions below 8 fall back
// to DefaultHashDimensions.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim < 8 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Embed never fails. Text without tokens embeds to the zero vector.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)

	for _, tok := range contentTokens(text) {
		idx, sign := h.bucket(tok)
		vec[idx] += sign
	}

	normalize(vec)
	return vec, nil
}

// Dimension returns the configured vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// ModelName identifies the local embedder.
func (h *HashEmbedder) ModelName() string { return "hash-bow" }

func (h *HashEmbedder) bucket(tok string) (int, float32) {
	hasher := fnv.New64a()
	hasher.Write([]byte(tok))
	sum := hasher.Sum64()

	sign := float32(1)
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(h.dim)), sign
}

// tokenize lower-cases text and splits it on anything that is not a letter,
// digit or apostrophe.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// contentTokens drops stopwords, keeping them only when nothing else remains.
func contentTokens(text string) []string {
	all := tokenize(text)

	content := make([]string, 0, len(all))
	for _, tok := range all {
		if _, stop := stopwords[tok]; !stop {
			content = append(content, tok)
		}
	}
	if len(content) == 0 {
		return all
	}
	return content
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
