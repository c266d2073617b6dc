package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyDEDualRetriever_Retrieve_MergesBothSets(t *testing.T) {
	model := &mockChatModel{generateFn: func(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) (*schema.AIMessage, error) {
		return schema.NewAIMessage("hypothetical answer"), nil
	}}
	embedder := &mockEmbedder{embedSingleFn: func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	}}
	store := &mockVectorStore{searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
		return makeDocs("a", "b"), nil
	}}

	hyde := retriever.NewHyDERetriever(model, embedder, store)
	dual := retriever.NewHyDEDualRetriever(hyde, store, embedder)

	docs, err := dual.Retrieve(context.Background(), "what is a PT?")
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
}

func TestHyDEDualRetriever_Retrieve_HyDEErrorPropagates(t *testing.T) {
	genErr := errors.New("llm down")
	model := &mockChatModel{generateFn: func(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) (*schema.AIMessage, error) {
		return nil, genErr
	}}
	embedder := &mockEmbedder{}
	store := &mockVectorStore{}

	hyde := retriever.NewHyDERetriever(model, embedder, store)
	dual := retriever.NewHyDEDualRetriever(hyde, store, embedder)

	_, err := dual.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hyde dual")
}

func TestHyDEDualRetriever_Retrieve_QueryEmbedError(t *testing.T) {
	model := &mockChatModel{}
	embedErr := errors.New("embed failed")
	calls := 0
	embedder := &mockEmbedder{embedSingleFn: func(ctx context.Context, text string) ([]float32, error) {
		calls++
		if calls == 1 {
			return []float32{0.1}, nil
		}
		return nil, embedErr
	}}
	store := &mockVectorStore{searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
		return makeDocs("a"), nil
	}}

	hyde := retriever.NewHyDERetriever(model, embedder, store)
	dual := retriever.NewHyDEDualRetriever(hyde, store, embedder)

	_, err := dual.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hyde dual: embed query")
}

func TestHyDEDualRetriever_Retrieve_BeforeHookAbort(t *testing.T) {
	model := &mockChatModel{}
	embedder := &mockEmbedder{}
	store := &mockVectorStore{}
	hookErr := errors.New("blocked")

	hyde := retriever.NewHyDERetriever(model, embedder, store)
	dual := retriever.NewHyDEDualRetriever(hyde, store, embedder, retriever.WithHyDEDualHooks(retriever.Hooks{
		BeforeRetrieve: func(ctx context.Context, query string) error { return hookErr },
	}))

	_, err := dual.Retrieve(context.Background(), "q")
	assert.Equal(t, hookErr, err)
	assert.Equal(t, 0, model.calls)
}
