package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

const minHybridCandidates = 20

// HybridRetriever combines dense vector search and BM25 sparse search,
// fusing both result sets with Reciprocal Rank Fusion.
type HybridRetriever struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	bm25     BM25Searcher
	rrfK     int
	hooks    Hooks
}

// HybridOption configures a HybridRetriever at construction time.
type HybridOption func(*HybridRetriever)

// WithHybridRRFK sets the RRF k constant. Values <= 0 are ignored and the
// default of 60 is kept.
func WithHybridRRFK(k int) HybridOption {
	return func(r *HybridRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithHybridHooks attaches lifecycle hooks to a HybridRetriever.
func WithHybridHooks(hooks Hooks) HybridOption {
	return func(r *HybridRetriever) { r.hooks = hooks }
}

// NewHybridRetriever constructs a HybridRetriever.
func NewHybridRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, bm25 BM25Searcher, opts ...HybridOption) *HybridRetriever {
	r := &HybridRetriever{store: store, embedder: embedder, bm25: bm25, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	candidateK := 2 * cfg.TopK
	if candidateK < minHybridCandidates {
		candidateK = minHybridCandidates
	}

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		err = fmt.Errorf("hybrid embed: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	var searchOpts []vectorstore.SearchOption
	if cfg.Threshold != 0 {
		searchOpts = append(searchOpts, vectorstore.WithThreshold(cfg.Threshold))
	}
	if len(cfg.Metadata) > 0 {
		searchOpts = append(searchOpts, vectorstore.WithFilter(cfg.Metadata))
	}

	vectorDocs, err := r.store.Search(ctx, vec, candidateK, searchOpts...)
	if err != nil {
		err = fmt.Errorf("hybrid vector search: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	bm25Docs, err := r.bm25.Search(ctx, query, candidateK)
	if err != nil {
		err = fmt.Errorf("hybrid bm25 search: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, [][]schema.Document{vectorDocs, bm25Docs})
	if err != nil {
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	result := truncate(fused, cfg.TopK)

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}
