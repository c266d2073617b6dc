package retriever

import (
	"context"

	"github.com/peraturan-ai/legalrag/schema"
)

// Hooks are lifecycle callbacks invoked around Retrieve and, for rerank
// retrievers, around the rerank step.
type Hooks struct {
	BeforeRetrieve func(ctx context.Context, query string) error
	AfterRetrieve  func(ctx context.Context, docs []schema.Document, err error)
	OnRerank       func(ctx context.Context, query string, before, after []schema.Document)
}

// ComposeHooks runs each Hooks' BeforeRetrieve in order, aborting on the
// first error, and each AfterRetrieve/OnRerank in order.
func ComposeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		BeforeRetrieve: func(ctx context.Context, query string) error {
			for _, h := range hooks {
				if h.BeforeRetrieve == nil {
					continue
				}
				if err := h.BeforeRetrieve(ctx, query); err != nil {
					return err
				}
			}
			return nil
		},
		AfterRetrieve: func(ctx context.Context, docs []schema.Document, err error) {
			for _, h := range hooks {
				if h.AfterRetrieve != nil {
					h.AfterRetrieve(ctx, docs, err)
				}
			}
		},
		OnRerank: func(ctx context.Context, query string, before, after []schema.Document) {
			for _, h := range hooks {
				if h.OnRerank != nil {
					h.OnRerank(ctx, query, before, after)
				}
			}
		},
	}
}
