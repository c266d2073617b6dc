package retriever_test

import (
	"context"
	"testing"

	"github.com/peraturan-ai/legalrag/kg"
	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalHybrid_RetrievesAndFuses(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{
		searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
			return []schema.Document{
				{ID: "v1", Content: "syarat pendirian PT", Score: 0.9},
				{ID: "v2", Content: "modal dasar", Score: 0.5},
			}, nil
		},
	}
	bm25 := &mockBM25Searcher{
		searchFn: func(ctx context.Context, query string, k int) ([]schema.Document, error) {
			return []schema.Document{
				{ID: "v1", Content: "syarat pendirian PT", Score: 3.0},
				{ID: "b1", Content: "pajak penghasilan", Score: 2.0},
			}, nil
		},
	}

	r := retriever.NewLegalHybridRetriever(store, embedder, bm25)
	docs, err := r.Retrieve(context.Background(), "syarat pendirian PT", retriever.WithTopK(5))
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	// v1 appears in both dense and sparse result sets, so RRF should rank
	// it first.
	assert.Equal(t, "v1", docs[0].ID)
}

func TestLegalHybrid_AuthorityBoostReordersByJenis(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{
		searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
			return []schema.Document{
				{ID: "perda1", Content: "a", Score: 0.9, Metadata: map[string]any{"jenis_dokumen": "Perda"}},
				{ID: "uu1", Content: "b", Score: 0.85, Metadata: map[string]any{"jenis_dokumen": "UU"}},
			}, nil
		},
	}
	bm25 := &mockBM25Searcher{}

	r := retriever.NewLegalHybridRetriever(store, embedder, bm25)
	docs, err := r.Search(context.Background(), "apa itu PT", []retriever.Option{retriever.WithTopK(2)},
		[]retriever.LegalHybridQueryOption{retriever.WithExpandQueries(false), retriever.WithUseReranking(false)})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "uu1", docs[0].ID)
}

func TestLegalHybrid_MinScoreCut(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{
		searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
			return []schema.Document{
				{ID: "a", Content: "x", Score: 0.9},
				{ID: "b", Content: "y", Score: 0.1},
			}, nil
		},
	}
	bm25 := &mockBM25Searcher{}

	r := retriever.NewLegalHybridRetriever(store, embedder, bm25)
	const minScore = 0.0163 // between RRF rank-0 (1/61) and rank-1 (1/62) scores
	docs, err := r.Search(context.Background(), "query", []retriever.Option{retriever.WithTopK(5)},
		[]retriever.LegalHybridQueryOption{
			retriever.WithExpandQueries(false),
			retriever.WithUseReranking(false),
			retriever.WithMinScore(minScore),
		})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
	for _, d := range docs {
		assert.GreaterOrEqual(t, d.Score, minScore)
	}
}

func TestLegalHybrid_KGBoostAppliesMultiplier(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{
		searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
			return []schema.Document{
				{ID: "a", Content: "x", Score: 1.0, Metadata: map[string]any{"jenis_dokumen": "UU", "nomor": "11", "tahun": "2020"}},
				{ID: "b", Content: "y", Score: 1.0, Metadata: map[string]any{"jenis_dokumen": "UU", "nomor": "13", "tahun": "2003"}},
			}, nil
		},
	}
	bm25 := &mockBM25Searcher{}

	graph := kg.New()
	graph.AddNode(kg.Node{ID: "uu_11_2020", Type: "law"})
	graph.AddNode(kg.Node{ID: "uu_13_2003", Type: "law"})
	graph.AddEdge("uu_11_2020", "uu_13_2003", kg.EdgeAmends)

	r := retriever.NewLegalHybridRetriever(store, embedder, bm25, retriever.WithKnowledgeGraph(graph))
	docs, err := r.Search(context.Background(), "query", []retriever.Option{retriever.WithTopK(5)},
		[]retriever.LegalHybridQueryOption{retriever.WithExpandQueries(false), retriever.WithUseReranking(false)})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	scores := map[string]float64{}
	for _, d := range docs {
		scores[d.ID] = d.Score
	}
	// Both are UU (same authority multiplier); "b" is 1-hop related to "a"
	// via AMENDS so it receives the KG boost and should score higher.
	assert.Greater(t, scores["b"], scores["a"])
}

func TestLegalHybrid_NoFilterFallback(t *testing.T) {
	embedder := &mockEmbedder{}
	calls := 0
	store := &mockVectorStore{
		searchFn: func(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
			calls++
			return []schema.Document{}, nil
		},
	}
	bm25 := &mockBM25Searcher{}

	r := retriever.NewLegalHybridRetriever(store, embedder, bm25)
	docs, err := r.Search(context.Background(), "Pasal 5 UU 11/2020", []retriever.Option{retriever.WithTopK(3)},
		[]retriever.LegalHybridQueryOption{retriever.WithExpandQueries(false), retriever.WithUseReranking(false)})
	require.NoError(t, err)
	assert.Empty(t, docs)
	// Filtered attempt, then unfiltered retry.
	assert.GreaterOrEqual(t, calls, 2)
}
