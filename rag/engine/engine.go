// Package engine assembles the retrieval pipeline at process start: it
// scrolls the vector index once to build the in-memory BM25 index and the
// parent store, stacks the strategy retrievers over the hybrid core, and
// returns a ready ragchain.Chain.
package engine

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/kg"
	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/rag/bm25"
	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/ragchain"
	"github.com/peraturan-ai/legalrag/schema"
)

// Scroller pages every stored chunk payload, as the Qdrant store does. The
// engine consumes it exactly once, at build time.
type Scroller interface {
	Scroll(ctx context.Context) iter.Seq2[schema.Document, error]
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	graph    *kg.Graph
	reranker retriever.Reranker
	judge    llm.ChatModel
	engine   config.EngineConfig
	logger   *slog.Logger
	chainOpts []ragchain.ChainOption
}

// WithKnowledgeGraph attaches the regulation graph used for the hybrid
// retriever's one-hop boost.
func WithKnowledgeGraph(g *kg.Graph) Option {
	return func(b *builder) { b.graph = g }
}

// WithReranker attaches a cross-encoder reranker.
func WithReranker(r retriever.Reranker) Option {
	return func(b *builder) { b.reranker = r }
}

// WithJudge sets a dedicated grounding-verification model.
func WithJudge(judge llm.ChatModel) Option {
	return func(b *builder) { b.judge = judge }
}

// WithEngineConfig overrides the pipeline tunables.
func WithEngineConfig(engine config.EngineConfig) Option {
	return func(b *builder) { b.engine = engine }
}

// WithLogger sets the logger threaded through the chain.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithChainOptions appends extra ragchain options (answer cache, generate
// tuning) to the built chain.
func WithChainOptions(opts ...ragchain.ChainOption) Option {
	return func(b *builder) { b.chainOpts = append(b.chainOpts, opts...) }
}

// Build scrolls the corpus once, constructs the BM25 index and parent
// store, stacks the strategy retrievers over the hybrid core, and returns
// the assembled chain. model may be nil, in which case the LLM-dependent
// strategies (HyDE, decomposition, CRAG rephrasing, refine_query) degrade
// to direct retrieval and only retrieval-only entry points are usable.
func Build(ctx context.Context, store vectorstore.VectorStore, scroller Scroller, embedder embedding.Embedder, model llm.ChatModel, opts ...Option) (*ragchain.Chain, error) {
	b := builder{
		engine: config.DefaultEngineConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}

	index := bm25.NewIndex()
	var corpus []schema.Document
	if scroller != nil {
		for doc, err := range scroller.Scroll(ctx) {
			if err != nil {
				return nil, fmt.Errorf("engine: scroll corpus: %w", err)
			}
			corpus = append(corpus, doc)
		}
		index.Add(corpus)
	}

	var sparse retriever.BM25Searcher
	if index.Len() > 0 {
		sparse = index
	} else {
		b.logger.Warn("engine: empty corpus scroll, sparse stage disabled")
	}

	hybridOpts := []retriever.LegalHybridOption{
		retriever.WithLegalHybridRRFK(b.engine.RRFK),
		retriever.WithLegalHybridHooks(retriever.InstrumentationHooks("hybrid")),
	}
	if b.graph != nil {
		hybridOpts = append(hybridOpts, retriever.WithKnowledgeGraph(b.graph))
	}
	if b.reranker != nil {
		hybridOpts = append(hybridOpts, retriever.WithLegalReranker(b.reranker))
	}
	direct := retriever.NewLegalHybridRetriever(store, embedder, sparse, hybridOpts...)

	multiQuery := retriever.NewMultiQueryFusionRetriever(direct,
		retriever.WithMultiQueryFusionRRFK(b.engine.RRFK))

	agenticOpts := []retriever.AgenticOption{
		retriever.WithAgenticMultiQuery(multiQuery),
		retriever.WithAgenticMaxIterations(b.engine.MaxAgenticIterations),
		retriever.WithAgenticLogger(b.logger),
	}
	chainOpts := []ragchain.ChainOption{
		ragchain.WithMultiQuery(multiQuery),
		ragchain.WithEngineConfig(b.engine),
		ragchain.WithChainLogger(b.logger),
	}

	if model != nil {
		hyde := retriever.NewHyDEDualRetriever(
			retriever.NewHyDERetriever(model, embedder, store), store, embedder,
			retriever.WithHyDEDualRRFK(b.engine.RRFK))
		planner := retriever.NewQueryPlannerRetriever(direct, model,
			retriever.WithQueryPlannerRRFK(b.engine.RRFK))
		cragGate := retriever.NewCRAGGateRetriever(direct, model,
			retriever.WithCRAGGateThreshold(b.engine.CRAGCorrect, b.engine.CRAGIncorrect),
			retriever.WithCRAGGateRRFK(b.engine.RRFK))

		agenticOpts = append(agenticOpts,
			retriever.WithAgenticHyDE(hyde),
			retriever.WithAgenticPlanner(planner),
			retriever.WithAgenticModel(model))
		chainOpts = append(chainOpts,
			ragchain.WithHyDE(hyde),
			ragchain.WithPlanner(planner),
			ragchain.WithCRAGGate(cragGate))
	}

	agentic := retriever.NewAgenticRetriever(direct, agenticOpts...)
	chainOpts = append(chainOpts, ragchain.WithAgentic(agentic))

	if len(corpus) > 0 {
		chainOpts = append(chainOpts, ragchain.WithParentStore(retriever.NewParentStoreFromDocuments(corpus)))
	}
	if b.judge != nil {
		chainOpts = append(chainOpts, ragchain.WithJudge(b.judge))
	}
	chainOpts = append(chainOpts, b.chainOpts...)

	return ragchain.NewChain(direct, model, chainOpts...), nil
}
