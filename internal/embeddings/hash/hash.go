// Package hash provides a deterministic, dependency-free embedding provider.
//
// Each lower-cased alphanumeric token is hashed with FNV-1a into one signed
// bucket of a fixed-size vector, which is then L2-normalised. Texts sharing
// tokens get positive cosine similarity and identical texts embed identically,
// which is enough for offline runs and tests. It is not a semantic model.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/ndsh/metasearch/internal/embeddings"
)

// Provider is the feature-hashing embedder.
type Provider struct {
	dims int
}

var _ embeddings.Provider = (*Provider)(nil)

// New returns a Provider producing vectors of length dims.
func New(dims int) (*Provider, error) {
	if dims < 1 {
		return nil, fmt.Errorf("hash: dimensions must be >= 1, got %d", dims)
	}
	return &Provider{dims: dims}, nil
}

// Dimensions returns the vector length.
func (p *Provider) Dimensions() int { return p.dims }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *Provider) vector(text string) []float32 {
	acc := make([]float64, p.dims)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		acc[sum%uint64(p.dims)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, p.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Tokenize lower-cases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
