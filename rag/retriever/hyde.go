package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

const defaultHyDEPrompt = "Write a short hypothetical passage that would answer the following question. Do not mention that it is hypothetical.\n\nQuestion: %s"

// HyDERetriever implements Hypothetical Document Embeddings: it asks an LLM
// to write a hypothetical answer to the query, embeds that answer instead
// of the query, and searches a vectorstore.VectorStore with it.
type HyDERetriever struct {
	model    llm.ChatModel
	embedder embedding.Embedder
	store    vectorstore.VectorStore
	prompt   string
	hooks    Hooks
}

// HyDEOption configures a HyDERetriever at construction time.
type HyDEOption func(*HyDERetriever)

// WithHyDEPrompt overrides the prompt template used to generate the
// hypothetical document. It must contain exactly one %s placeholder for the
// query.
func WithHyDEPrompt(prompt string) HyDEOption {
	return func(r *HyDERetriever) { r.prompt = prompt }
}

// WithHyDEHooks attaches lifecycle hooks to a HyDERetriever.
func WithHyDEHooks(hooks Hooks) HyDEOption {
	return func(r *HyDERetriever) { r.hooks = hooks }
}

// NewHyDERetriever constructs a HyDERetriever.
func NewHyDERetriever(model llm.ChatModel, embedder embedding.Embedder, store vectorstore.VectorStore, opts ...HyDEOption) *HyDERetriever {
	r := &HyDERetriever{model: model, embedder: embedder, store: store, prompt: defaultHyDEPrompt}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *HyDERetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	prompt := fmt.Sprintf(r.prompt, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		err = fmt.Errorf("hyde generate: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	vec, err := r.embedder.EmbedSingle(ctx, resp.Text())
	if err != nil {
		err = fmt.Errorf("hyde embed: %w", err)
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
