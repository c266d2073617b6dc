package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

// VectorStoreRetriever retrieves documents by embedding the query and
// performing a dense similarity search against a vectorstore.VectorStore.
type VectorStoreRetriever struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	hooks    Hooks
}

// VectorStoreOption configures a VectorStoreRetriever at construction time.
type VectorStoreOption func(*VectorStoreRetriever)

// WithVectorStoreHooks attaches lifecycle hooks to a VectorStoreRetriever.
func WithVectorStoreHooks(hooks Hooks) VectorStoreOption {
	return func(r *VectorStoreRetriever) { r.hooks = hooks }
}

// NewVectorStoreRetriever constructs a Retriever backed by store, embedding
// queries with embedder.
func NewVectorStoreRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, opts ...VectorStoreOption) *VectorStoreRetriever {
	r := &VectorStoreRetriever{store: store, embedder: embedder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *VectorStoreRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		err = fmt.Errorf("vectorstore retriever: embed query: %w", err)
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

	docs, err := r.store.Search(ctx, vec, cfg.TopK, searchOpts...)
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}
