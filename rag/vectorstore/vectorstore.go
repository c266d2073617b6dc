// Package vectorstore defines the VectorStore interface used to persist and
// search dense document embeddings, along with a provider registry,
// composable lifecycle hooks, and a middleware chain.
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/schema"
)

// SearchStrategy selects the vector similarity function used by Search.
type SearchStrategy int

const (
	// Cosine ranks by cosine similarity.
	Cosine SearchStrategy = iota
	// DotProduct ranks by raw dot product.
	DotProduct
	// Euclidean ranks by negative Euclidean distance (closer is higher).
	Euclidean
)

// String implements fmt.Stringer.
func (s SearchStrategy) String() string {
	switch s {
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot_product"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// SearchConfig holds the options applied to a single Search call.
type SearchConfig struct {
	Filter    map[string]any
	Threshold float64
	Strategy  SearchStrategy
}

// SearchOption configures a SearchConfig.
type SearchOption func(*SearchConfig)

// WithFilter restricts search results to documents whose metadata matches
// every key/value pair in filter.
func WithFilter(filter map[string]any) SearchOption {
	return func(c *SearchConfig) {
		c.Filter = filter
	}
}

// WithThreshold drops results scoring below threshold.
func WithThreshold(threshold float64) SearchOption {
	return func(c *SearchConfig) {
		c.Threshold = threshold
	}
}

// WithStrategy selects the similarity function used to score candidates.
func WithStrategy(strategy SearchStrategy) SearchOption {
	return func(c *SearchConfig) {
		c.Strategy = strategy
	}
}

// VectorStore persists document embeddings and searches them by similarity.
type VectorStore interface {
	// Add upserts docs along with their embeddings. len(docs) must equal
	// len(embeddings).
	Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error

	// Search returns up to k documents most similar to query, most similar
	// first, with Score populated per the selected SearchStrategy.
	Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error)

	// Delete removes the documents with the given IDs. Non-existent IDs are
	// ignored.
	Delete(ctx context.Context, ids []string) error
}

// Factory constructs a VectorStore from a provider configuration.
type Factory func(cfg config.ProviderConfig) (VectorStore, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named provider factory to the registry.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// List returns the names of all registered providers, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a VectorStore using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (VectorStore, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vectorstore: unknown provider %q", name)
	}
	return factory(cfg)
}

// Hooks are lifecycle callbacks invoked around Add, Search, and Delete.
type Hooks struct {
	BeforeAdd    func(ctx context.Context, docs []schema.Document) error
	AfterAdd     func(ctx context.Context, err error)
	BeforeSearch func(ctx context.Context, query []float32, k int) error
	AfterSearch  func(ctx context.Context, results []schema.Document, err error)
	BeforeDelete func(ctx context.Context, ids []string) error
	AfterDelete  func(ctx context.Context, err error)
}

// ComposeHooks runs each Hooks' Before* callback in order (aborting on the
// first error) and each After* callback in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeAdd: func(ctx context.Context, docs []schema.Document) error {
			for _, h := range hooks {
				if h.BeforeAdd == nil {
					continue
				}
				if err := h.BeforeAdd(ctx, docs); err != nil {
					return err
				}
			}
			return nil
		},
		AfterAdd: func(ctx context.Context, err error) {
			for _, h := range hooks {
				if h.AfterAdd != nil {
					h.AfterAdd(ctx, err)
				}
			}
		},
		BeforeSearch: func(ctx context.Context, query []float32, k int) error {
			for _, h := range hooks {
				if h.BeforeSearch == nil {
					continue
				}
				if err := h.BeforeSearch(ctx, query, k); err != nil {
					return err
				}
			}
			return nil
		},
		AfterSearch: func(ctx context.Context, results []schema.Document, err error) {
			for _, h := range hooks {
				if h.AfterSearch != nil {
					h.AfterSearch(ctx, results, err)
				}
			}
		},
		BeforeDelete: func(ctx context.Context, ids []string) error {
			for _, h := range hooks {
				if h.BeforeDelete == nil {
					continue
				}
				if err := h.BeforeDelete(ctx, ids); err != nil {
					return err
				}
			}
			return nil
		},
		AfterDelete: func(ctx context.Context, err error) {
			for _, h := range hooks {
				if h.AfterDelete != nil {
					h.AfterDelete(ctx, err)
				}
			}
		},
	}
}

// Middleware wraps a VectorStore with additional behavior.
type Middleware func(VectorStore) VectorStore

// ApplyMiddleware wraps store with each middleware, in reverse order, so the
// first middleware passed is outermost (runs first).
func ApplyMiddleware(store VectorStore, mws ...Middleware) VectorStore {
	wrapped := store
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that invokes hooks around every call.
func WithHooks(hooks Hooks) Middleware {
	return func(next VectorStore) VectorStore {
		return &hookedStore{next: next, hooks: hooks}
	}
}

type hookedStore struct {
	next  VectorStore
	hooks Hooks
}

func (h *hookedStore) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if h.hooks.BeforeAdd != nil {
		if err := h.hooks.BeforeAdd(ctx, docs); err != nil {
			if h.hooks.AfterAdd != nil {
				h.hooks.AfterAdd(ctx, err)
			}
			return err
		}
	}
	err := h.next.Add(ctx, docs, embeddings)
	if h.hooks.AfterAdd != nil {
		h.hooks.AfterAdd(ctx, err)
	}
	return err
}

func (h *hookedStore) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]schema.Document, error) {
	if h.hooks.BeforeSearch != nil {
		if err := h.hooks.BeforeSearch(ctx, query, k); err != nil {
			if h.hooks.AfterSearch != nil {
				h.hooks.AfterSearch(ctx, nil, err)
			}
			return nil, err
		}
	}
	results, err := h.next.Search(ctx, query, k, opts...)
	if h.hooks.AfterSearch != nil {
		h.hooks.AfterSearch(ctx, results, err)
	}
	return results, err
}

func (h *hookedStore) Delete(ctx context.Context, ids []string) error {
	if h.hooks.BeforeDelete != nil {
		if err := h.hooks.BeforeDelete(ctx, ids); err != nil {
			if h.hooks.AfterDelete != nil {
				h.hooks.AfterDelete(ctx, err)
			}
			return err
		}
	}
	err := h.next.Delete(ctx, ids)
	if h.hooks.AfterDelete != nil {
		h.hooks.AfterDelete(ctx, err)
	}
	return err
}
