// Package reranker scores (query, document) pairs with a cross-encoder and
// reorders retrieval candidates by that score. Raw cross-encoder logits are
// normalized into [0,1] so downstream confidence scoring sees a uniform
// scale regardless of backend.
package reranker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/schema"
)

// CrossEncoder scores each text against the query. Scores are raw model
// outputs; higher means more relevant.
type CrossEncoder interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Typical logit range of the msmarco-style cross-encoders the engine is
// tuned against. Raw scores are clamped to this range before the affine
// map to [0,1].
const (
	rawScoreMin = -10.0
	rawScoreMax = 10.0
)

// Normalize maps a raw cross-encoder score into [0,1], clamping to the
// model's typical output range first.
func Normalize(raw float64) float64 {
	if raw < rawScoreMin {
		raw = rawScoreMin
	}
	if raw > rawScoreMax {
		raw = rawScoreMax
	}
	return (raw - rawScoreMin) / (rawScoreMax - rawScoreMin)
}

// Factory constructs a CrossEncoder from a provider configuration.
type Factory func(cfg config.ProviderConfig) (CrossEncoder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a named provider factory to the registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// List returns the names of all registered providers, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a CrossEncoder using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (CrossEncoder, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reranker: unknown provider %q", name)
	}
	ce, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("reranker: construct %q: %w", name, err)
	}
	return ce, nil
}

// DocumentReranker adapts a CrossEncoder to the retriever package's Reranker
// interface: it scores every candidate against the query, replaces each
// document's Score with the normalized cross-encoder score, and re-sorts
// descending.
type DocumentReranker struct {
	encoder CrossEncoder
}

// NewDocumentReranker wraps a CrossEncoder for use as a retrieval reranker.
func NewDocumentReranker(encoder CrossEncoder) *DocumentReranker {
	return &DocumentReranker{encoder: encoder}
}

// Rerank scores docs against query and returns them sorted by normalized
// score, highest first. Ties break by document id so the final ordering is
// deterministic.
func (r *DocumentReranker) Rerank(ctx context.Context, query string, docs []schema.Document) ([]schema.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	scores, err := r.encoder.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("reranker: score: %w", err)
	}
	if len(scores) != len(docs) {
		return nil, fmt.Errorf("reranker: got %d scores for %d documents", len(scores), len(docs))
	}

	reranked := make([]schema.Document, len(docs))
	for i, doc := range docs {
		doc.Score = Normalize(scores[i])
		reranked[i] = doc
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ID < reranked[j].ID
	})
	return reranked, nil
}
