// Package nvidia implements an Embedder backed by NVIDIA's NIM embeddings
// API, used as the legal retrieval engine's secondary remote embedding
// backend when jina is not configured.
package nvidia

import (
	"context"
	"fmt"
	"time"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/internal/httpclient"
	"github.com/peraturan-ai/legalrag/rag/embedding"
)

const (
	defaultModel      = "nvidia/nv-embedqa-e5-v5"
	defaultDimensions = 1024
	defaultBaseURL    = "https://integrate.api.nvidia.com/v1"
	defaultTimeout    = 30 * time.Second

	// maxBatchSize caps how many inputs go into one HTTP call.
	maxBatchSize = 100

	// maxRetries is this provider's cap on 429/5xx retries, each with
	// exponential backoff honoring Retry-After.
	maxRetries = 3
)

func init() {
	embedding.Register("nvidia", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder calls NVIDIA's OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	apiKey  string
	baseURL string
	model   string
	dims    int
	client  *httpclient.Client
}

// New constructs an nvidia Embedder.
func New(cfg config.ProviderConfig) (*Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dims := defaultDimensions
	if d, ok := config.GetOption[float64](cfg, "dimensions"); ok && d > 0 {
		dims = int(d)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Embedder{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client: httpclient.New(
			httpclient.WithBaseURL(baseURL),
			httpclient.WithTimeout(timeout),
			httpclient.WithRetries(maxRetries),
			httpclient.WithBearerToken(cfg.APIKey),
		),
	}, nil
}

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

type embedDatum struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embedResponse struct {
	Data []embedDatum `json:"data"`
}

// Embed implements embedding.Embedder for document text, sending the
// passage input type in batches of at most 100 inputs.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, "passage")
}

// EmbedSingle implements embedding.Embedder for a search query, sending the
// query input type.
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, "query")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		req := embedRequest{
			Model:     e.model,
			Input:     batch,
			InputType: inputType,
			Truncate:  "END",
		}
		parsed, err := httpclient.DoJSON[embedResponse](ctx, e.client, "POST", "/embeddings", req)
		if err != nil {
			return nil, fmt.Errorf("nvidia: embed batch at %d: %w", start, err)
		}

		for _, d := range parsed.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				continue
			}
			vectors[start+d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

// Dimensions implements embedding.Embedder.
func (e *Embedder) Dimensions() int {
	return e.dims
}
