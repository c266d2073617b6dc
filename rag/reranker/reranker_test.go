package reranker_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/rag/reranker"
	"github.com/peraturan-ai/legalrag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEncoder struct {
	scoreFn func(ctx context.Context, query string, texts []string) ([]float64, error)
}

func (m *mockEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return m.scoreFn(ctx, query, texts)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.5, reranker.Normalize(0))
	assert.Equal(t, 1.0, reranker.Normalize(10))
	assert.Equal(t, 0.0, reranker.Normalize(-10))
	assert.Equal(t, 1.0, reranker.Normalize(42), "scores above the typical range clamp to 1")
	assert.Equal(t, 0.0, reranker.Normalize(-42), "scores below the typical range clamp to 0")
}

func TestDocumentReranker_ReordersByScore(t *testing.T) {
	enc := &mockEncoder{scoreFn: func(ctx context.Context, query string, texts []string) ([]float64, error) {
		return []float64{-5, 8, 2}, nil
	}}

	docs := []schema.Document{
		{ID: "a", Content: "first", Score: 0.9},
		{ID: "b", Content: "second", Score: 0.1},
		{ID: "c", Content: "third", Score: 0.5},
	}
	r := reranker.NewDocumentReranker(enc)
	out, err := r.Rerank(context.Background(), "q", docs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{out[0].ID, out[1].ID, out[2].ID})
	for _, doc := range out {
		assert.GreaterOrEqual(t, doc.Score, 0.0)
		assert.LessOrEqual(t, doc.Score, 1.0)
	}
}

func TestDocumentReranker_TieBreaksByID(t *testing.T) {
	enc := &mockEncoder{scoreFn: func(ctx context.Context, query string, texts []string) ([]float64, error) {
		return []float64{3, 3}, nil
	}}

	docs := []schema.Document{
		{ID: "z", Content: "zz"},
		{ID: "a", Content: "aa"},
	}
	r := reranker.NewDocumentReranker(enc)
	out, err := r.Rerank(context.Background(), "q", docs)
	require.NoError(t, err)
	assert.Equal(t, "a", out[0].ID)
}

func TestDocumentReranker_ScoreCountMismatch(t *testing.T) {
	enc := &mockEncoder{scoreFn: func(ctx context.Context, query string, texts []string) ([]float64, error) {
		return []float64{1}, nil
	}}

	r := reranker.NewDocumentReranker(enc)
	_, err := r.Rerank(context.Background(), "q", []schema.Document{{ID: "a"}, {ID: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scores for")
}

func TestDocumentReranker_EncoderError(t *testing.T) {
	enc := &mockEncoder{scoreFn: func(ctx context.Context, query string, texts []string) ([]float64, error) {
		return nil, errors.New("model load failed")
	}}

	r := reranker.NewDocumentReranker(enc)
	_, err := r.Rerank(context.Background(), "q", []schema.Document{{ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reranker: score")
}

func TestDocumentReranker_EmptyInput(t *testing.T) {
	called := false
	enc := &mockEncoder{scoreFn: func(ctx context.Context, query string, texts []string) ([]float64, error) {
		called = true
		return nil, nil
	}}

	r := reranker.NewDocumentReranker(enc)
	out, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.False(t, called)
}

func TestHTTPCrossEncoder_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		var req struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "syarat mendirikan PT", req.Query)
		scores := make([]float64, len(req.Texts))
		for i := range scores {
			scores[i] = float64(i)
		}
		json.NewEncoder(w).Encode(map[string]any{"scores": scores})
	}))
	defer srv.Close()

	enc, err := reranker.NewHTTP(config.ProviderConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	scores, err := enc.Score(context.Background(), "syarat mendirikan PT", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, scores)
}

func TestHTTPCrossEncoder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"scores": []float64{1}})
	}))
	defer srv.Close()

	enc, err := reranker.NewHTTP(config.ProviderConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = enc.Score(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
}

func TestNewHTTP_RequiresBaseURL(t *testing.T) {
	_, err := reranker.NewHTTP(config.ProviderConfig{})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, reranker.List(), "http")

	_, err := reranker.New("nope", config.ProviderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
