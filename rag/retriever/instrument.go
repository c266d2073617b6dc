package retriever

import (
	"context"
	"time"

	"github.com/peraturan-ai/legalrag/o11y"
	"github.com/peraturan-ai/legalrag/schema"
)

// InstrumentationHooks returns Hooks that record result counts and errors
// for the named component through the o11y meter. They are no-ops when no
// meter provider is configured.
func InstrumentationHooks(component string) Hooks {
	return Hooks{
		AfterRetrieve: func(ctx context.Context, docs []schema.Document, err error) {
			if err != nil {
				o11y.Counter(ctx, "retriever."+component+".errors", 1)
				return
			}
			o11y.Counter(ctx, "retriever."+component+".results", int64(len(docs)))
		},
	}
}

// TimedRetrieve runs r.Retrieve and records its wall-clock duration under
// the component's latency histogram.
func TimedRetrieve(ctx context.Context, r Retriever, component, query string, opts ...Option) ([]schema.Document, error) {
	start := time.Now()
	docs, err := r.Retrieve(ctx, query, opts...)
	o11y.Histogram(ctx, "retriever."+component+".latency_ms", float64(time.Since(start).Milliseconds()))
	return docs, err
}
