package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

// HyDEDualRetriever retrieves with both the original query and a HyDE
// hypothetical-answer embedding, then fuses both result sets with RRF. This
// differs from HyDERetriever, which searches with the hypothetical alone.
type HyDEDualRetriever struct {
	hyde     *HyDERetriever
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	rrfK     int
	hooks    Hooks
}

// HyDEDualOption configures a HyDEDualRetriever at construction time.
type HyDEDualOption func(*HyDEDualRetriever)

// WithHyDEDualRRFK sets the RRF k constant. Values <= 0 are ignored.
func WithHyDEDualRRFK(k int) HyDEDualOption {
	return func(r *HyDEDualRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithHyDEDualHooks attaches lifecycle hooks to a HyDEDualRetriever.
func WithHyDEDualHooks(hooks Hooks) HyDEDualOption {
	return func(r *HyDEDualRetriever) { r.hooks = hooks }
}

// NewHyDEDualRetriever constructs a HyDEDualRetriever from an existing
// HyDERetriever plus the store/embedder needed to also search the original
// query's own embedding.
func NewHyDEDualRetriever(hyde *HyDERetriever, store vectorstore.VectorStore, embedder embedding.Embedder, opts ...HyDEDualOption) *HyDEDualRetriever {
	r := &HyDEDualRetriever{hyde: hyde, store: store, embedder: embedder, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *HyDEDualRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	hypoDocs, err := r.hyde.Retrieve(ctx, query, opts...)
	if err != nil {
		err = fmt.Errorf("hyde dual: hypothetical retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		err = fmt.Errorf("hyde dual: embed query: %w", err)
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

	queryDocs, err := r.store.Search(ctx, vec, cfg.TopK, searchOpts...)
	if err != nil {
		err = fmt.Errorf("hyde dual: query retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, [][]schema.Document{hypoDocs, queryDocs})
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
