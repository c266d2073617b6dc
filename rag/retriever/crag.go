package retriever

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

const defaultCRAGThreshold = 0.0

const cragEvaluatePrompt = "On a scale from -1 (completely irrelevant) to 1 (highly relevant), how relevant is the following document to the question? Respond with only the number.\n\nQuestion: %s\n\nDocument: %s"

// CRAGRetriever implements Corrective-RAG: each document an inner Retriever
// returns is scored for relevance by an LLM; documents scoring at or above
// threshold are kept, and if none do (or the inner retriever returns
// nothing), a WebSearcher is used as a fallback.
type CRAGRetriever struct {
	inner     Retriever
	model     llm.ChatModel
	web       WebSearcher
	threshold float64
	hooks     Hooks
}

// CRAGOption configures a CRAGRetriever at construction time.
type CRAGOption func(*CRAGRetriever)

// WithCRAGThreshold sets the relevance threshold below which a document is
// dropped. Default 0.0.
func WithCRAGThreshold(threshold float64) CRAGOption {
	return func(r *CRAGRetriever) { r.threshold = threshold }
}

// WithCRAGHooks attaches lifecycle hooks to a CRAGRetriever.
func WithCRAGHooks(hooks Hooks) CRAGOption {
	return func(r *CRAGRetriever) { r.hooks = hooks }
}

// NewCRAGRetriever wraps inner with LLM-graded corrective retrieval. web may
// be nil, in which case irrelevant/empty retrievals return nil documents.
func NewCRAGRetriever(inner Retriever, model llm.ChatModel, web WebSearcher, opts ...CRAGOption) *CRAGRetriever {
	r := &CRAGRetriever{inner: inner, model: model, web: web, threshold: defaultCRAGThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *CRAGRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	docs, err := r.inner.Retrieve(ctx, query, opts...)
	if err != nil {
		err = fmt.Errorf("crag inner retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	var relevant []schema.Document
	for _, doc := range docs {
		score, err := r.evaluate(ctx, query, doc)
		if err != nil {
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		doc.Score = score
		if score >= r.threshold {
			relevant = append(relevant, doc)
		}
	}

	if len(relevant) == 0 {
		result, err := r.fallback(ctx, query, cfg.TopK)
		if err != nil {
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, result, nil)
		}
		return result, nil
	}

	result := truncate(relevant, cfg.TopK)
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}

func (r *CRAGRetriever) evaluate(ctx context.Context, query string, doc schema.Document) (float64, error) {
	prompt := fmt.Sprintf(cragEvaluatePrompt, query, doc.Content)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return 0, fmt.Errorf("crag evaluate: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(resp.Text()), 64)
	if err != nil {
		return 0, fmt.Errorf("crag evaluate: parse score: %w", err)
	}

	if score > 1.0 {
		score = 1.0
	} else if score < -1.0 {
		score = -1.0
	}
	return score, nil
}

func (r *CRAGRetriever) fallback(ctx context.Context, query string, topK int) ([]schema.Document, error) {
	if r.web == nil {
		return nil, nil
	}
	docs, err := r.web.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("crag web search: %w", err)
	}
	return docs, nil
}
