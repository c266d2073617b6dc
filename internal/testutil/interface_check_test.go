package testutil

import (
	"github.com/peraturan-ai/legalrag/internal/testutil/mockembedder"
	"github.com/peraturan-ai/legalrag/internal/testutil/mockstore"
	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
)

// Compile-time interface checks to ensure mocks implement their target interfaces.
var (
	_ embedding.Embedder      = (*mockembedder.MockEmbedder)(nil)
	_ vectorstore.VectorStore = (*mockstore.MockVectorStore)(nil)
)
