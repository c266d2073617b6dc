// Package sentencetransformers implements an Embedder backed by a
// self-hosted sentence-transformers inference server (Hugging Face
// Inference API-compatible pipeline/feature-extraction endpoint), used as
// the legal retrieval engine's final fallback embedding backend behind its
// jina and NVIDIA-style remote backends.
package sentencetransformers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/rag/embedding"
)

const (
	defaultModel      = "sentence-transformers/all-MiniLM-L6-v2"
	defaultDimensions = 384
	defaultBaseURL    = "https://api-inference.huggingface.co"
	defaultTimeout    = 30 * time.Second
)

var modelDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"sentence-transformers/all-MiniLM-L12-v2": 384,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"BAAI/bge-small-en-v1.5":                  384,
	"BAAI/bge-base-en-v1.5":                   768,
	"BAAI/bge-large-en-v1.5":                  1024,
}

func init() {
	embedding.Register("sentence_transformers", func(cfg config.ProviderConfig) (embedding.Embedder, error) {
		return New(cfg)
	})
}

// Embedder calls a sentence-transformers inference server's
// pipeline/feature-extraction endpoint for the given model.
type Embedder struct {
	apiKey  string
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// New constructs a sentence_transformers Embedder. cfg.APIKey is required.
func New(cfg config.ProviderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sentence_transformers: api_key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dims := defaultDimensions
	if d, ok := modelDimensions[model]; ok {
		dims = d
	}
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
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("sentence_transformers: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sentence_transformers: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentence_transformers: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sentence_transformers: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentence_transformers: status %d: %s", resp.StatusCode, string(raw))
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("sentence_transformers: decode response: %w", err)
	}
	return vectors, nil
}

// EmbedSingle implements embedding.Embedder.
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions implements embedding.Embedder.
func (e *Embedder) Dimensions() int {
	return e.dims
}
