package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

// Strategy names one retrieval technique the agentic loop can pick.
type Strategy string

const (
	StrategyDirect      Strategy = "direct"
	StrategyHyDE        Strategy = "hyde"
	StrategyDecompose   Strategy = "decompose"
	StrategyMultiQuery  Strategy = "multi_query"
	StrategyRefineQuery Strategy = "refine_query"
)

// StrategyDecision records one iteration of the agentic loop for
// observability. Decisions are logged, not returned to callers.
type StrategyDecision struct {
	Iteration    int
	Strategy     Strategy
	AverageScore float64
	ResultCount  int
}

const (
	defaultMaxIterations    = 3
	satisfactoryAvgScore    = 0.5
	refineAvgScoreThreshold = 0.3
	decomposeWordThreshold  = 15
)

// definitionPhrases trigger the HyDE strategy on the first iteration.
var definitionPhrases = []string{"apa itu", "definisi", "pengertian"}

const refineQueryPrompt = "Pencarian dokumen dengan pertanyaan berikut memberikan hasil yang kurang relevan. Tulis ulang sebagai satu kueri pencarian yang lebih spesifik. Jawab hanya dengan kueri baru.\n\nPertanyaan: %s"

// AgenticRetriever runs a rule-based strategy-selection loop: each iteration
// picks one retrieval strategy from the question's shape and the previous
// iteration's scores, executes it (falling back to direct retrieval when the
// chosen technique is unavailable or fails), and stops early once the
// average score is satisfactory.
type AgenticRetriever struct {
	direct        Retriever
	hyde          Retriever
	planner       Retriever
	multiQuery    Retriever
	model         llm.ChatModel
	maxIterations int
	logger        *slog.Logger
	onDecision    func(StrategyDecision)
	hooks         Hooks
}

// AgenticOption configures an AgenticRetriever at construction time.
type AgenticOption func(*AgenticRetriever)

// WithAgenticHyDE supplies the retriever used for the hyde strategy.
func WithAgenticHyDE(r Retriever) AgenticOption {
	return func(a *AgenticRetriever) { a.hyde = r }
}

// WithAgenticPlanner supplies the retriever used for the decompose strategy.
func WithAgenticPlanner(r Retriever) AgenticOption {
	return func(a *AgenticRetriever) { a.planner = r }
}

// WithAgenticMultiQuery supplies the retriever used for the multi_query
// strategy.
func WithAgenticMultiQuery(r Retriever) AgenticOption {
	return func(a *AgenticRetriever) { a.multiQuery = r }
}

// WithAgenticModel supplies the LLM used by the refine_query strategy. A nil
// model downgrades refine_query to direct retrieval.
func WithAgenticModel(model llm.ChatModel) AgenticOption {
	return func(a *AgenticRetriever) { a.model = model }
}

// WithAgenticMaxIterations bounds the loop. Values <= 0 keep the default of 3.
func WithAgenticMaxIterations(n int) AgenticOption {
	return func(a *AgenticRetriever) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithAgenticLogger sets the logger for per-iteration decisions.
func WithAgenticLogger(logger *slog.Logger) AgenticOption {
	return func(a *AgenticRetriever) { a.logger = logger }
}

// WithAgenticDecisionHook registers a callback invoked once per iteration
// with that iteration's decision, for metrics and audit trails.
func WithAgenticDecisionHook(fn func(StrategyDecision)) AgenticOption {
	return func(a *AgenticRetriever) { a.onDecision = fn }
}

// WithAgenticHooks attaches lifecycle hooks to an AgenticRetriever.
func WithAgenticHooks(hooks Hooks) AgenticOption {
	return func(a *AgenticRetriever) { a.hooks = hooks }
}

// NewAgenticRetriever constructs an AgenticRetriever around a direct
// retriever. Strategies without a configured retriever fall back to direct.
func NewAgenticRetriever(direct Retriever, opts ...AgenticOption) *AgenticRetriever {
	a := &AgenticRetriever{
		direct:        direct,
		maxIterations: defaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SelectStrategy applies the selection rules: with previous results, refine
// the query below a 0.3 average and broaden with multi_query below 0.5; on
// the first iteration, decompose long or compound questions, use HyDE for
// definition questions, and retrieve directly otherwise.
func (a *AgenticRetriever) SelectStrategy(question string, previous []schema.Document) Strategy {
	if previous != nil {
		avg := averageScore(previous)
		if avg < refineAvgScoreThreshold {
			return StrategyRefineQuery
		}
		if avg < satisfactoryAvgScore {
			return StrategyMultiQuery
		}
		return StrategyDirect
	}

	if len(strings.Fields(question)) > decomposeWordThreshold || IsCompoundQuestion(question) {
		return StrategyDecompose
	}
	lower := strings.ToLower(question)
	for _, phrase := range definitionPhrases {
		if strings.Contains(lower, phrase) {
			return StrategyHyDE
		}
	}
	return StrategyDirect
}

// Retrieve implements Retriever by running the full agentic loop.
func (a *AgenticRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if a.hooks.BeforeRetrieve != nil {
		if err := a.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	docs, err := a.search(ctx, query, opts)
	if a.hooks.AfterRetrieve != nil {
		a.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}

func (a *AgenticRetriever) search(ctx context.Context, query string, opts []Option) ([]schema.Document, error) {
	var (
		results  []schema.Document
		previous []schema.Document
	)
	for i := 0; i < a.maxIterations; i++ {
		strategy := a.SelectStrategy(query, previous)

		docs, err := a.execute(ctx, strategy, query, opts)
		if err != nil {
			a.logger.Warn("agentic strategy failed, falling back to direct",
				"strategy", string(strategy), "iteration", i+1, "error", err)
			strategy = StrategyDirect
			docs, err = a.direct.Retrieve(ctx, query, opts...)
			if err != nil {
				return nil, fmt.Errorf("agentic direct retrieve: %w", err)
			}
		}

		results = docs
		previous = docs
		avg := averageScore(docs)

		decision := StrategyDecision{
			Iteration:    i + 1,
			Strategy:     strategy,
			AverageScore: avg,
			ResultCount:  len(docs),
		}
		a.logger.Debug("agentic iteration",
			"iteration", decision.Iteration, "strategy", string(decision.Strategy),
			"avg_score", decision.AverageScore, "results", decision.ResultCount)
		if a.onDecision != nil {
			a.onDecision(decision)
		}

		if avg >= satisfactoryAvgScore {
			break
		}
	}
	return results, nil
}

func (a *AgenticRetriever) execute(ctx context.Context, strategy Strategy, query string, opts []Option) ([]schema.Document, error) {
	switch strategy {
	case StrategyHyDE:
		if a.hyde != nil {
			return a.hyde.Retrieve(ctx, query, opts...)
		}
	case StrategyDecompose:
		if a.planner != nil {
			return a.planner.Retrieve(ctx, query, opts...)
		}
	case StrategyMultiQuery:
		if a.multiQuery != nil {
			return a.multiQuery.Retrieve(ctx, query, opts...)
		}
	case StrategyRefineQuery:
		if a.model != nil {
			refined, err := a.refine(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("agentic refine: %w", err)
			}
			return a.direct.Retrieve(ctx, refined, opts...)
		}
	}
	return a.direct.Retrieve(ctx, query, opts...)
}

func (a *AgenticRetriever) refine(ctx context.Context, query string) (string, error) {
	resp, err := a.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(fmt.Sprintf(refineQueryPrompt, query))})
	if err != nil {
		return "", err
	}
	refined := strings.TrimSpace(resp.Text())
	if refined == "" {
		return query, nil
	}
	return refined, nil
}

func averageScore(docs []schema.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, doc := range docs {
		sum += doc.Score
	}
	return sum / float64(len(docs))
}
