package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

const defaultMultiQueryCount = 3

const multiQueryPrompt = "Generate %d different versions of the given question to retrieve relevant documents from a vector database. Provide these alternative questions separated by newlines. Original question: %s"

// MultiQueryRetriever generates several rephrasings of the query with an
// LLM, retrieves with each, and merges and deduplicates the results.
type MultiQueryRetriever struct {
	inner      Retriever
	model      llm.ChatModel
	numQueries int
	hooks      Hooks
}

// MultiQueryOption configures a MultiQueryRetriever at construction time.
type MultiQueryOption func(*MultiQueryRetriever)

// WithMultiQueryCount sets how many query variants to generate. Default 3.
func WithMultiQueryCount(n int) MultiQueryOption {
	return func(r *MultiQueryRetriever) { r.numQueries = n }
}

// WithMultiQueryHooks attaches lifecycle hooks to a MultiQueryRetriever.
func WithMultiQueryHooks(hooks Hooks) MultiQueryOption {
	return func(r *MultiQueryRetriever) { r.hooks = hooks }
}

// NewMultiQueryRetriever wraps inner with LLM-generated query expansion.
func NewMultiQueryRetriever(inner Retriever, model llm.ChatModel, opts ...MultiQueryOption) *MultiQueryRetriever {
	r := &MultiQueryRetriever{inner: inner, model: model, numQueries: defaultMultiQueryCount}
	for _, opt := range opts {
		opt(r)
	}
	if r.numQueries <= 0 {
		r.numQueries = defaultMultiQueryCount
	}
	return r
}

// Retrieve implements Retriever.
func (r *MultiQueryRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	queries, err := r.generateQueries(ctx, query)
	if err != nil {
		err = fmt.Errorf("multiquery: generate queries: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	var all []schema.Document
	for _, q := range queries {
		docs, err := r.inner.Retrieve(ctx, q, opts...)
		if err != nil {
			err = fmt.Errorf("multiquery retrieve %q: %w", q, err)
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		all = append(all, docs...)
	}

	result := dedup(all)
	sortByScore(result)

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}

func (r *MultiQueryRetriever) generateQueries(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(multiQueryPrompt, r.numQueries, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return nil, err
	}

	queries := []string{query}
	if resp == nil {
		return queries, nil
	}
	for _, line := range strings.Split(resp.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			queries = append(queries, line)
		}
	}
	return queries, nil
}
