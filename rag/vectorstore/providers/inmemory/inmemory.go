// Package inmemory provides a dependency-free, in-process VectorStore
// suitable for tests, local development, and as the scroll source backing
// the sparse BM25 index built over a corpus.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

func init() {
	vectorstore.Register("inmemory", func(cfg config.ProviderConfig) (vectorstore.VectorStore, error) {
		return New(), nil
	})
}

type entry struct {
	doc       schema.Document
	embedding []float32
}

// Store is an in-memory, mutex-guarded VectorStore backed by a linear scan.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Add implements vectorstore.VectorStore.
func (s *Store) Add(ctx context.Context, docs []schema.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("inmemory: docs length %d does not match embeddings length %d", len(docs), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		s.entries[doc.ID] = entry{doc: doc, embedding: embeddings[i]}
	}
	return nil
}

// Search implements vectorstore.VectorStore.
func (s *Store) Search(ctx context.Context, query []float32, k int, opts ...vectorstore.SearchOption) ([]schema.Document, error) {
	cfg := &vectorstore.SearchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   schema.Document
		score float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if !matchesFilter(e.doc, cfg.Filter) {
			continue
		}
		var score float64
		switch cfg.Strategy {
		case vectorstore.DotProduct:
			score = dotProduct(query, e.embedding)
		case vectorstore.Euclidean:
			score = -euclideanDistance(query, e.embedding)
		default:
			score = cosineSimilarity(query, e.embedding)
		}
		if score < cfg.Threshold {
			continue
		}
		doc := e.doc
		doc.Score = score
		candidates = append(candidates, scored{doc: doc, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]schema.Document, k)
	for i := 0; i < k; i++ {
		results[i] = candidates[i].doc
	}
	return results, nil
}

// Delete implements vectorstore.VectorStore.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

// Scroll returns every document currently held, in no particular order. It
// is used to build a fresh BM25 sparse index over the same corpus a
// VectorStore serves for dense search.
func (s *Store) Scroll(ctx context.Context) ([]schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]schema.Document, 0, len(s.entries))
	for _, e := range s.entries {
		docs = append(docs, e.doc)
	}
	return docs, nil
}

func matchesFilter(doc schema.Document, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	if doc.Metadata == nil {
		return false
	}
	for k, v := range filter {
		if doc.Metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
