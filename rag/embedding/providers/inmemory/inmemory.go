// Package inmemory provides a deterministic, dependency-free Embedder
// suitable for tests and local development.
package inmemory

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/rag/embedding"
)

const defaultDimensions = 128

func init() {
	embedding.Register("inmemory", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder produces deterministic, normalized pseudo-embeddings derived from
// a text's content via per-dimension FNV hashing. It has no external
// dependency and is used for tests and as a default when no real embedding
// backend is configured.
type Embedder struct {
	dims int
}

// New constructs an Embedder. cfg.Options["dimensions"] overrides the
// dimensionality; zero, negative, or missing falls back to 128.
func New(cfg config.ProviderConfig) (*Embedder, error) {
	dims := defaultDimensions
	if d, ok := config.GetOption[float64](cfg, "dimensions"); ok && d > 0 {
		dims = int(d)
	}
	return &Embedder{dims: dims}, nil
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

// EmbedSingle implements embedding.Embedder.
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// Dimensions implements embedding.Embedder.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// vector derives a normalized pseudo-embedding from text: dimension i is the
// FNV-1a hash of text salted with i, mapped into [-1, 1], then the whole
// vector is L2-normalized so every embedding has unit length.
func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	var norm float64
	for i := 0; i < e.dims; i++ {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		v := float64(h.Sum32()%2000001)/1000000.0 - 1.0
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
