package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/schema"
)

// RerankRetriever retrieves a candidate pool from an inner Retriever, then
// reorders it with a Reranker and truncates to TopN.
type RerankRetriever struct {
	inner    Retriever
	reranker Reranker
	topN     int
	hooks    Hooks
}

// RerankOption configures a RerankRetriever at construction time.
type RerankOption func(*RerankRetriever)

// WithRerankTopN limits the reranked results to the top n documents. n<=0
// means no limit.
func WithRerankTopN(n int) RerankOption {
	return func(r *RerankRetriever) { r.topN = n }
}

// WithRerankHooks attaches lifecycle hooks, including OnRerank, to a
// RerankRetriever.
func WithRerankHooks(hooks Hooks) RerankOption {
	return func(r *RerankRetriever) { r.hooks = hooks }
}

// NewRerankRetriever wraps inner with a reranking stage.
func NewRerankRetriever(inner Retriever, reranker Reranker, opts ...RerankOption) *RerankRetriever {
	r := &RerankRetriever{inner: inner, reranker: reranker}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *RerankRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	docs, err := r.inner.Retrieve(ctx, query, opts...)
	if err != nil {
		err = fmt.Errorf("rerank inner retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	if len(docs) == 0 {
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, docs, nil)
		}
		return docs, nil
	}

	reranked, err := r.reranker.Rerank(ctx, query, docs)
	if err != nil {
		err = fmt.Errorf("rerank: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	if r.hooks.OnRerank != nil {
		r.hooks.OnRerank(ctx, query, docs, reranked)
	}

	result := truncate(reranked, r.topN)

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}
