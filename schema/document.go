// Package schema defines the shared value types passed between retrievers,
// embedders, vector stores, and chat models.
package schema

// Document is a retrievable unit of text carried through the retrieval
// pipeline. For the legal-RAG engine, Document represents a Chunk or a
// SearchResult depending on pipeline stage: before retrieval, Score is the
// zero value; after a retrieval stage, Score carries that stage's semantics
// (cosine similarity, BM25 raw score, RRF-accumulated score, or a
// reranker-normalized value in [0,1]).
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Score     float64
	Embedding []float32
}
