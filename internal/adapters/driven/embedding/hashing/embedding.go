// Package hashing provides a fully local, deterministic embedder based
// on feature hashing. It needs no model download and no network, which
// keeps the semantic path available on a fresh install; a learned
// embedding model can replace it without touching the ports.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// DefaultDimensions is the embedding size when none is configured.
const DefaultDimensions = 256

// Embedder hashes word unigrams and bigrams into a fixed-length
// vector and L2-normalizes the result. The same text always produces
// the same vector, bit for bit: tokens are folded in input order and
// all arithmetic is plain float64 accumulation.
type Embedder struct {
	dims int
}

// New creates a hashing embedder. dims <= 0 selects the default.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed generates the embedding for the given text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)

	acc := make([]float64, e.dims)
	fold := func(feature string) {
		h := fnv.New64a()
		h.Write([]byte(feature))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dims))
		// The bit above the bucket index supplies the sign, which
		// spreads collisions instead of always adding them up.
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		acc[idx] += sign
	}

	for i, tok := range tokens {
		fold(tok)
		if i+1 < len(tokens) {
			fold(tok + " " + tokens[i+1])
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dims)
	if norm > 0 {
		for i, v := range acc {
			vec[i] = float32(v / norm)
		}
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return "feature-hashing-v1"
}

// tokenize lower-cases the text and splits it on anything that is not
// a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
