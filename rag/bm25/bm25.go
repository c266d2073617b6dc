// Package bm25 implements an in-memory Okapi BM25 sparse index over
// Indonesian legal document chunks, tokenized with rag/tokenizer. It
// satisfies retriever.BM25Searcher and is meant to be built once at startup
// by scrolling the full corpus out of the vector store.
package bm25

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/rag/tokenizer"
	"github.com/peraturan-ai/legalrag/schema"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Option configures an Index.
type Option func(*Index)

// WithK1 sets the term-frequency saturation parameter. Default 1.5.
func WithK1(k1 float64) Option {
	return func(idx *Index) { idx.k1 = k1 }
}

// WithB sets the document-length normalization parameter. Default 0.75.
func WithB(b float64) Option {
	return func(idx *Index) { idx.b = b }
}

// Index is an in-memory Okapi BM25 index.
type Index struct {
	k1 float64
	b  float64

	mu       sync.RWMutex
	docs     map[string]schema.Document
	postings map[string]map[string]int // term -> docID -> term frequency
	docLen   map[string]int
	totalLen int
}

// NewIndex constructs an empty Index.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		k1:       defaultK1,
		b:        defaultB,
		docs:     make(map[string]schema.Document),
		postings: make(map[string]map[string]int),
		docLen:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add indexes docs, tokenizing their content. Re-adding a document ID
// replaces its prior entry.
func (idx *Index) Add(docs []schema.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		idx.removeLocked(doc.ID)

		tokens := tokenizer.Tokenize(doc.Content)
		idx.docs[doc.ID] = doc
		idx.docLen[doc.ID] = len(tokens)
		idx.totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		for term, tf := range counts {
			if idx.postings[term] == nil {
				idx.postings[term] = make(map[string]int)
			}
			idx.postings[term][doc.ID] = tf
		}
	}
}

// Remove deletes documents by ID from the index.
func (idx *Index) Remove(ids []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		idx.removeLocked(id)
	}
}

func (idx *Index) removeLocked(id string) {
	if _, ok := idx.docs[id]; !ok {
		return
	}
	idx.totalLen -= idx.docLen[id]
	delete(idx.docs, id)
	delete(idx.docLen, id)
	for term, postings := range idx.postings {
		if _, ok := postings[id]; ok {
			delete(postings, id)
			if len(postings) == 0 {
				delete(idx.postings, term)
			}
		}
	}
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search implements retriever.BM25Searcher, scoring every indexed document
// against query's tokens and returning the top k by descending BM25 score.
func (idx *Index) Search(_ context.Context, query string, k int) ([]schema.Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docs)
	if n == 0 {
		return nil, nil
	}
	avgdl := float64(idx.totalLen) / float64(n)

	terms := tokenizer.Tokenize(query)
	scores := make(map[string]float64)
	for _, term := range terms {
		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		idf := math.Log(float64(n-len(postings))+0.5) - math.Log(float64(len(postings))+0.5) + 1
		if idf < 0 {
			idf = 0
		}
		for docID, tf := range postings {
			dl := float64(idx.docLen[docID])
			denom := float64(tf) + idx.k1*(1-idx.b+idx.b*dl/avgdl)
			scores[docID] += idf * (float64(tf) * (idx.k1 + 1)) / denom
		}
	}

	results := make([]schema.Document, 0, len(scores))
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		doc := idx.docs[docID]
		doc.Score = score
		results = append(results, doc)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}
