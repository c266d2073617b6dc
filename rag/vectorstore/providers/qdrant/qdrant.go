// Package qdrant implements a VectorStore backed by a Qdrant collection,
// used for durable dense-vector storage of legal document chunks behind the
// hybrid retriever.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/google/uuid"
	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

const (
	defaultCollection = "documents"
	defaultDimension  = 1536
)

// pointIDNamespace seeds the deterministic UUIDs Qdrant point ids are
// derived from, so re-upserting the same chunk overwrites its point.
var pointIDNamespace = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// pointID maps a chunk id to the stable UUID Qdrant requires as a point id.
// The original chunk id travels in the payload under "_id".
func pointID(docID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(docID)).String()
}

func docIDFromPayload(payload map[string]any, rawPointID any) string {
	if id, ok := payload["_id"].(string); ok && id != "" {
		return id
	}
	return fmt.Sprintf("%v", rawPointID)
}

func init() {
	vectorstore.Register("qdrant", func(cfg config.ProviderConfig) (vectorstore.VectorStore, error) {
		return NewFromConfig(cfg)
	})
}

// Option configures a Store.
type Option func(*Store)

// WithCollection sets the collection name. Default "documents".
func WithCollection(name string) Option {
	return func(s *Store) { s.collection = name }
}

// WithDimension sets the vector dimensionality used by EnsureCollection.
// Default 1536.
func WithDimension(dim int) Option {
	return func(s *Store) { s.dimension = dim }
}

// WithAPIKey sets the api-key header sent with every request.
func WithAPIKey(key string) Option {
	return func(s *Store) { s.apiKey = key }
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.client = client }
}

// Store is a VectorStore backed by Qdrant's REST API.
type Store struct {
	baseURL    string
	collection string
	dimension  int
	apiKey     string
	client     *http.Client
}

// New constructs a qdrant Store against baseURL (e.g. "http://localhost:6333").
func New(baseURL string, opts ...Option) *Store {
	s := &Store{
		baseURL:    baseURL,
		collection: defaultCollection,
		dimension:  defaultDimension,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig constructs a qdrant Store from a provider configuration.
// cfg.BaseURL is required; cfg.Options["collection"] and
// cfg.Options["dimension"] override the defaults.
func NewFromConfig(cfg config.ProviderConfig) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("qdrant: base_url is required")
	}
	opts := []Option{WithAPIKey(cfg.APIKey)}
	if collection, ok := config.GetOption[string](cfg, "collection"); ok && collection != "" {
		opts = append(opts, WithCollection(collection))
	}
	if dim, ok := config.GetOption[float64](cfg, "dimension"); ok && dim > 0 {
		opts = append(opts, WithDimension(int(dim)))
	}
	return New(cfg.BaseURL, opts...), nil
}

// EnsureCollection creates the store's collection with cosine distance if it
// does not already exist. Qdrant returns 200 for create-or-no-op and 409 if
// the collection exists with incompatible parameters.
func (s *Store) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	_, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection, body)
	return err
}

// hnswBulkIngest disables HNSW graph construction (m=0, ef_construct=0)
// while a bulk ingest is in flight; hnswSearchReady restores the values a
// search index needs. Building the graph incrementally per point during a
// large initial load is far slower than inserting flat and indexing once.
func (s *Store) hnswBulkIngest(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPatch, "/collections/"+s.collection, map[string]any{
		"hnsw_config": map[string]any{"m": 0, "ef_construct": 0},
	})
	return err
}

func (s *Store) hnswSearchReady(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPatch, "/collections/"+s.collection, map[string]any{
		"hnsw_config": map[string]any{"m": 16, "ef_construct": 100},
	})
	return err
}

// BulkAdd upserts docs with HNSW indexing disabled for the duration, then
// re-enables it. Intended for the initial corpus load, where indexing every
// point as it arrives is far slower than building the graph once at the end.
func (s *Store) BulkAdd(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if err := s.hnswBulkIngest(ctx); err != nil {
		return fmt.Errorf("qdrant: disable hnsw for bulk ingest: %w", err)
	}
	addErr := s.Add(ctx, docs, embeddings)
	if err := s.hnswSearchReady(ctx); err != nil {
		if addErr != nil {
			return addErr
		}
		return fmt.Errorf("qdrant: restore hnsw after bulk ingest: %w", err)
	}
	return addErr
}

const defaultScrollPageSize = 256

// Scroll iterates every point in the collection in stable ID order, paging
// through Qdrant's scroll API. It is used once at startup to pull the full
// corpus into the sparse BM25 index, which has no incremental API of its
// own.
func (s *Store) Scroll(ctx context.Context) iter.Seq2[schema.Document, error] {
	return func(yield func(schema.Document, error) bool) {
		var offset any
		for {
			body := map[string]any{
				"limit":        defaultScrollPageSize,
				"with_payload": true,
				"with_vector":  false,
			}
			if offset != nil {
				body["offset"] = offset
			}

			raw, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/scroll", body)
			if err != nil {
				yield(schema.Document{}, fmt.Errorf("qdrant: scroll: %w", err))
				return
			}

			var parsed struct {
				Result struct {
					Points []struct {
						ID      any            `json:"id"`
						Payload map[string]any `json:"payload"`
					} `json:"points"`
					NextPageOffset any `json:"next_page_offset"`
				} `json:"result"`
			}
			if err := json.Unmarshal(raw, &parsed); err != nil {
				yield(schema.Document{}, fmt.Errorf("qdrant: unmarshal scroll response: %w", err))
				return
			}

			for _, p := range parsed.Result.Points {
				content, _ := p.Payload["content"].(string)
				metadata := map[string]any{}
				for k, v := range p.Payload {
					if k == "content" || k == "_id" {
						continue
					}
					metadata[k] = v
				}
				doc := schema.Document{ID: docIDFromPayload(p.Payload, p.ID), Content: content, Metadata: metadata}
				if !yield(doc, nil) {
					return
				}
			}

			if parsed.Result.NextPageOffset == nil || len(parsed.Result.Points) == 0 {
				return
			}
			offset = parsed.Result.NextPageOffset
		}
	}
}

// Add implements vectorstore.VectorStore by upserting points.
func (s *Store) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("qdrant: docs length %d does not match embeddings length %d", len(docs), len(embeddings))
	}

	points := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payload := map[string]any{}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload["content"] = doc.Content
		payload["_id"] = doc.ID
		points[i] = map[string]any{
			"id":      pointID(doc.ID),
			"vector":  embeddings[i],
			"payload": payload,
		}
	}

	_, err := s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points", map[string]any{"points": points})
	return err
}

// Search implements vectorstore.VectorStore via Qdrant's points/search.
func (s *Store) Search(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
	cfg := &vectorstore.SearchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	body := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	if cfg.Threshold != 0 {
		body["score_threshold"] = cfg.Threshold
	}
	if len(cfg.Filter) > 0 {
		must := make([]map[string]any, 0, len(cfg.Filter))
		for k, v := range cfg.Filter {
			must = append(must, map[string]any{
				"key":   k,
				"match": map[string]any{"value": v},
			})
		}
		body["filter"] = map[string]any{"must": must}
	}

	raw, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("qdrant: unmarshal search response: %w", err)
	}

	results := make([]schema.Document, len(parsed.Result))
	for i, r := range parsed.Result {
		content, _ := r.Payload["content"].(string)
		metadata := map[string]any{}
		for k, v := range r.Payload {
			if k == "content" || k == "_id" {
				continue
			}
			metadata[k] = v
		}
		results[i] = schema.Document{
			ID:       docIDFromPayload(r.Payload, r.ID),
			Content:  content,
			Metadata: metadata,
			Score:    r.Score,
		}
	}
	return results, nil
}

// Delete implements vectorstore.VectorStore.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]any, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}
	_, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/delete", map[string]any{"points": points})
	return err
}

func (s *Store) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qdrant: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant: status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
