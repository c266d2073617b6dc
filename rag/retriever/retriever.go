// Package retriever defines the Retriever interface used to fetch candidate
// documents for a query, along with a provider registry, composable
// lifecycle hooks, a middleware chain, and a family of concrete retrieval
// strategies (vector, rerank, multi-query, ensemble/RRF, CRAG, adaptive,
// hybrid, HyDE) used by the legal retrieval engine.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/schema"
)

// Config holds the options applied to a single Retrieve call.
type Config struct {
	TopK      int
	Threshold float64
	Metadata  map[string]any
}

// Option configures a Config.
type Option func(*Config)

// WithTopK sets the maximum number of documents to return. Default 10.
func WithTopK(k int) Option {
	return func(c *Config) { c.TopK = k }
}

// WithThreshold drops results scoring below threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Config) { c.Threshold = threshold }
}

// WithMetadata restricts results to documents matching the given metadata
// filter, where supported by the underlying retriever.
func WithMetadata(metadata map[string]any) Option {
	return func(c *Config) { c.Metadata = metadata }
}

// ApplyOptions builds a Config from opts, starting from the defaults
// (TopK=10, Threshold=0).
func ApplyOptions(opts ...Option) Config {
	cfg := Config{TopK: 10}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Retriever fetches candidate documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error)
}

// Reranker reorders a set of retrieved documents for a query, typically
// using a cross-encoder or an LLM judge.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []schema.Document) ([]schema.Document, error)
}

// BM25Searcher performs sparse lexical search over an indexed corpus.
type BM25Searcher interface {
	Search(ctx context.Context, query string, k int) ([]schema.Document, error)
}

// WebSearcher performs a live web search, used as a corrective fallback
// when the primary retrieval is judged irrelevant.
type WebSearcher interface {
	Search(ctx context.Context, query string, k int) ([]schema.Document, error)
}

// Factory constructs a Retriever from a provider configuration.
type Factory func(cfg config.ProviderConfig) (Retriever, error)

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

// New constructs a Retriever using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (Retriever, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("retriever: unknown provider %q", name)
	}
	r, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("retriever: construct %q: %w", name, err)
	}
	return r, nil
}

// sortByScore sorts docs by Score descending, in place.
func sortByScore(docs []schema.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}

// sortFused orders fused results by score descending, breaking ties by
// document id so fusion output does not depend on map iteration order.
func sortFused(docs []schema.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID < docs[j].ID
	})
}

// dedup returns a new slice with one document per ID, keeping the
// highest-scored occurrence. Order follows each ID's first appearance.
func dedup(docs []schema.Document) []schema.Document {
	best := make(map[string]schema.Document, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		current, seen := best[doc.ID]
		if !seen {
			order = append(order, doc.ID)
			best[doc.ID] = doc
			continue
		}
		if doc.Score > current.Score {
			best[doc.ID] = doc
		}
	}
	result := make([]schema.Document, len(order))
	for i, id := range order {
		result[i] = best[id]
	}
	return result
}

func truncate(docs []schema.Document, k int) []schema.Document {
	if k > 0 && len(docs) > k {
		return docs[:k]
	}
	return docs
}
