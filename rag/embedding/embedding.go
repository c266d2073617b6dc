// Package embedding defines the Embedder interface used throughout the
// retrieval pipeline to turn text into dense vectors, along with a provider
// registry, composable lifecycle hooks, and a middleware chain.
package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
)

// Embedder turns text into dense vectors.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the length of the vectors this Embedder produces.
	Dimensions() int
}

// Factory constructs an Embedder from a provider configuration.
type Factory func(cfg config.ProviderConfig) (Embedder, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named provider factory to the registry. It is intended to
// be called from provider packages' init functions.
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

// New constructs an Embedder using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (Embedder, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q", name)
	}
	return factory(cfg)
}

// Hooks are lifecycle callbacks invoked around an Embed call.
type Hooks struct {
	// BeforeEmbed runs before the underlying Embed call. Returning an error
	// aborts the call.
	BeforeEmbed func(ctx context.Context, texts []string) error

	// AfterEmbed runs after the underlying Embed call, with its result.
	AfterEmbed func(ctx context.Context, embeddings [][]float32, err error)
}

// ComposeHooks runs each Hooks' BeforeEmbed in order (aborting on the first
// error) and each AfterEmbed in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeEmbed: func(ctx context.Context, texts []string) error {
			for _, h := range hooks {
				if h.BeforeEmbed == nil {
					continue
				}
				if err := h.BeforeEmbed(ctx, texts); err != nil {
					return err
				}
			}
			return nil
		},
		AfterEmbed: func(ctx context.Context, embeddings [][]float32, err error) {
			for _, h := range hooks {
				if h.AfterEmbed != nil {
					h.AfterEmbed(ctx, embeddings, err)
				}
			}
		},
	}
}

// Middleware wraps an Embedder with additional behavior.
type Middleware func(Embedder) Embedder

// ApplyMiddleware wraps emb with each middleware, in reverse order, so the
// first middleware passed is outermost (runs first).
func ApplyMiddleware(emb Embedder, mws ...Middleware) Embedder {
	wrapped := emb
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that invokes hooks around every Embed call.
func WithHooks(hooks Hooks) Middleware {
	return func(next Embedder) Embedder {
		return &hookedEmbedder{next: next, hooks: hooks}
	}
}

type hookedEmbedder struct {
	next  Embedder
	hooks Hooks
}

func (h *hookedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if h.hooks.BeforeEmbed != nil {
		if err := h.hooks.BeforeEmbed(ctx, texts); err != nil {
			if h.hooks.AfterEmbed != nil {
				h.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	embeddings, err := h.next.Embed(ctx, texts)
	if h.hooks.AfterEmbed != nil {
		h.hooks.AfterEmbed(ctx, embeddings, err)
	}
	return embeddings, err
}

func (h *hookedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if h.hooks.BeforeEmbed != nil {
		if err := h.hooks.BeforeEmbed(ctx, []string{text}); err != nil {
			if h.hooks.AfterEmbed != nil {
				h.hooks.AfterEmbed(ctx, nil, err)
			}
			return nil, err
		}
	}
	vec, err := h.next.EmbedSingle(ctx, text)
	if h.hooks.AfterEmbed != nil {
		if err != nil {
			h.hooks.AfterEmbed(ctx, nil, err)
		} else {
			h.hooks.AfterEmbed(ctx, [][]float32{vec}, nil)
		}
	}
	return vec, err
}

func (h *hookedEmbedder) Dimensions() int {
	return h.next.Dimensions()
}

// providerPrecedence orders the embedding backends when several are
// configured: the remote high-dimensional services win over the self-hosted
// sentence-transformer.
var providerPrecedence = []string{"jina", "nvidia", "sentence_transformers"}

// NewPreferred constructs the highest-precedence embedder among the
// configured providers (jina, then nvidia, then sentence_transformers). A
// provider missing from configs, or not registered, is skipped; providers
// outside the precedence list are tried last in registry order.
func NewPreferred(configs map[string]config.ProviderConfig) (Embedder, error) {
	tried := make(map[string]bool, len(providerPrecedence))
	for _, name := range providerPrecedence {
		tried[name] = true
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		if emb, err := New(name, cfg); err == nil {
			return emb, nil
		}
	}
	for _, name := range List() {
		if tried[name] {
			continue
		}
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		if emb, err := New(name, cfg); err == nil {
			return emb, nil
		}
	}
	return nil, fmt.Errorf("embedding: no usable provider configured")
}
