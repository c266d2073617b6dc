package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

// QueryComplexity classifies how much retrieval a query needs.
type QueryComplexity string

const (
	// NoRetrieval means the query can be answered without retrieval.
	NoRetrieval QueryComplexity = "no_retrieval"
	// SimpleRetrieval means a single-pass retrieval suffices.
	SimpleRetrieval QueryComplexity = "simple"
	// ComplexRetrieval means the query needs multi-step or broader retrieval.
	ComplexRetrieval QueryComplexity = "complex"
)

const classifyPrompt = "Classify the retrieval need for the following question as one of: no_retrieval, simple, complex.\n\n- no_retrieval: the question can be answered directly without looking anything up.\n- simple: the question needs a single focused document lookup.\n- complex: the question needs broad or multi-step research.\n\nRespond with only one of those three words.\n\nQuestion: %s"

// AdaptiveRetriever classifies each query's complexity with an LLM and
// dispatches to a simple or complex Retriever accordingly, skipping
// retrieval entirely when none is needed.
type AdaptiveRetriever struct {
	model   llm.ChatModel
	simple  Retriever
	complex Retriever
	hooks   Hooks
}

// AdaptiveOption configures an AdaptiveRetriever at construction time.
type AdaptiveOption func(*AdaptiveRetriever)

// WithAdaptiveHooks attaches lifecycle hooks to an AdaptiveRetriever.
func WithAdaptiveHooks(hooks Hooks) AdaptiveOption {
	return func(r *AdaptiveRetriever) { r.hooks = hooks }
}

// NewAdaptiveRetriever constructs an AdaptiveRetriever. If complex is nil,
// simple is used for both simple and complex classifications.
func NewAdaptiveRetriever(model llm.ChatModel, simple, complex Retriever, opts ...AdaptiveOption) *AdaptiveRetriever {
	if complex == nil {
		complex = simple
	}
	r := &AdaptiveRetriever{model: model, simple: simple, complex: complex}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *AdaptiveRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	complexity, err := r.classify(ctx, query)
	if err != nil {
		err = fmt.Errorf("adaptive classify: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	var docs []schema.Document
	switch complexity {
	case NoRetrieval:
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, nil)
		}
		return nil, nil
	case ComplexRetrieval:
		docs, err = r.complex.Retrieve(ctx, query, opts...)
		if err != nil {
			err = fmt.Errorf("adaptive complex retrieve: %w", err)
		}
	default:
		docs, err = r.simple.Retrieve(ctx, query, opts...)
		if err != nil {
			err = fmt.Errorf("adaptive simple retrieve: %w", err)
		}
	}

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}

func (r *AdaptiveRetriever) classify(ctx context.Context, query string) (QueryComplexity, error) {
	prompt := fmt.Sprintf(classifyPrompt, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return "", err
	}

	text := strings.ToLower(resp.Text())
	switch {
	case strings.Contains(text, string(NoRetrieval)):
		return NoRetrieval, nil
	case strings.Contains(text, string(ComplexRetrieval)):
		return ComplexRetrieval, nil
	default:
		return SimpleRetrieval, nil
	}
}
