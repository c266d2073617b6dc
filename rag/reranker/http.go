package reranker

import (
	"context"
	"fmt"
	"time"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/internal/httpclient"
)

const (
	defaultHTTPModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	defaultHTTPTimeout = 30 * time.Second
	defaultHTTPRetries = 3
)

func init() {
	Register("http", func(cfg config.ProviderConfig) (CrossEncoder, error) {
		return NewHTTP(cfg)
	})
}

// HTTPCrossEncoder calls a remote reranking service: one POST with the
// query and all candidate texts, returning one raw score per text in input
// order. Transient failures (429, 5xx) are retried with exponential backoff
// honoring Retry-After.
type HTTPCrossEncoder struct {
	client *httpclient.Client
	model  string
}

// NewHTTP constructs an HTTPCrossEncoder. cfg.BaseURL is required.
func NewHTTP(cfg config.ProviderConfig) (*HTTPCrossEncoder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("reranker: http provider requires a base URL")
	}
	model := cfg.Model
	if model == "" {
		model = defaultHTTPModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	opts := []httpclient.Option{
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(timeout),
		httpclient.WithRetries(defaultHTTPRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, httpclient.WithBearerToken(cfg.APIKey))
	}
	return &HTTPCrossEncoder{client: httpclient.New(opts...), model: model}, nil
}

type rerankRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Score implements CrossEncoder.
func (e *HTTPCrossEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return []float64{}, nil
	}

	req := rerankRequest{Model: e.model, Query: query, Texts: texts}
	resp, err := httpclient.DoJSON[rerankResponse](ctx, e.client, "POST", "/rerank", req)
	if err != nil {
		return nil, fmt.Errorf("reranker: rerank request: %w", err)
	}
	if len(resp.Scores) != len(texts) {
		return nil, fmt.Errorf("reranker: service returned %d scores for %d texts", len(resp.Scores), len(texts))
	}
	return resp.Scores, nil
}
