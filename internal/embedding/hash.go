package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size used by NewHashEmbedder when dims <= 0.
const DefaultHashDimensions = 256

// HashEmbedder is an offline Embedder based on signed feature hashing of lowercase
// word tokens. Texts sharing words land close together under cosine distance.
// It needs no network access, which makes it the embedder for tests and air-gapped use.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a feature-hashing embedder producing dims-sized vectors.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed hashes every token of text into the vector and L2-normalises the result.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)

	for _, token := range tokenize(text) {
		f := fnv.New64a()
		f.Write([]byte(token))
		sum := f.Sum64()

		bucket := int(sum % uint64(h.dims))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// Dimensions returns the vector dimensions for this embedder.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// tokenize splits on anything that is not a letter, digit or '#', lowercased.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '#'
	})
}

var _ Embedder = (*HashEmbedder)(nil)
