package enrich

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingEmbedder maps identifier sub-tokens into a fixed number of
// buckets (the hashing trick) and L2-normalises the result. Similar code
// shares vocabulary and therefore lands close in cosine distance.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder returns an embedder producing dim-length vectors.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }

func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		sum := fnvHash64(tok)
		idx := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	normalize(vec)
	return vec, nil
}

// tokenize splits text into lower-case identifier parts: snake_case and
// camelCase words are broken apart, keywords and punctuation are dropped.
func tokenize(text string) []string {
	var tokens []string
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, part := range splitCamel(w) {
			part = strings.ToLower(part)
			if len(part) < 2 || keywords[part] {
				continue
			}
			tokens = append(tokens, part)
		}
	}
	return tokens
}

func splitCamel(w string) []string {
	var parts []string
	start := 0
	runes := []rune(w)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

var keywords = map[string]bool{
	"def": true, "return": true, "self": true, "if": true, "else": true,
	"elif": true, "for": true, "in": true, "while": true, "import": true,
	"from": true, "as": true, "with": true, "try": true, "except": true,
	"pass": true, "none": true, "true": true, "false": true, "and": true,
	"or": true, "not": true, "is": true, "class": true, "async": true,
	"await": true, "yield": true, "lambda": true,
}

func fnvHash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
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
