package retriever

import (
	"context"

	"github.com/peraturan-ai/legalrag/schema"
)

// Middleware wraps a Retriever with additional behavior.
type Middleware func(Retriever) Retriever

// ApplyMiddleware wraps inner with each middleware, in reverse order, so the
// first middleware passed is outermost (runs first).
func ApplyMiddleware(inner Retriever, mws ...Middleware) Retriever {
	wrapped := inner
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// WithHooks returns a Middleware that invokes hooks around every call.
func WithHooks(hooks Hooks) Middleware {
	return func(next Retriever) Retriever {
		return &hookedRetriever{next: next, hooks: hooks}
	}
}

type hookedRetriever struct {
	next  Retriever
	hooks Hooks
}

func (h *hookedRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if h.hooks.BeforeRetrieve != nil {
		if err := h.hooks.BeforeRetrieve(ctx, query); err != nil {
			if h.hooks.AfterRetrieve != nil {
				h.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
	}
	docs, err := h.next.Retrieve(ctx, query, opts...)
	if h.hooks.AfterRetrieve != nil {
		h.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}
