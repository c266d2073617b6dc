package ragchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/peraturan-ai/legalrag/cache"
	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/o11y"
	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/tokenizer"
	"github.com/peraturan-ai/legalrag/schema"
)

// Fixed Indonesian user-visible refusals. The chain never returns a partial
// answer; failed or gated requests get one of these instead.
const (
	NoResultsMessage  = "Maaf, saya tidak menemukan dokumen peraturan yang relevan dengan pertanyaan Anda. Silakan coba dengan kata kunci lain atau sebutkan peraturan yang dimaksud."
	OutOfScopeMessage = "Maaf, pertanyaan Anda tampaknya berada di luar cakupan basis data peraturan perundang-undangan yang saya miliki, sehingga saya tidak dapat memberikan jawaban yang akurat."
)

const (
	defaultTopK          = 5
	snippetLength        = 500
	defaultAnswerCacheTTL = 15 * time.Minute
	historyTurnLimit     = 3
)

// Chain wires retrieval strategies, generation, confidence gating, and
// validation into one question-answering pipeline.
type Chain struct {
	direct     retriever.Retriever
	agentic    retriever.Retriever
	planner    retriever.Retriever
	multiQuery retriever.Retriever
	hyde       retriever.Retriever
	cragGate   retriever.Retriever
	parents    retriever.ParentStore
	model      llm.ChatModel
	judge      llm.ChatModel
	answers    cache.Cache
	answerTTL  time.Duration
	engine     config.EngineConfig
	logger     *slog.Logger
	genOpts    []llm.GenerateOption
}

// ChainOption configures a Chain at construction time.
type ChainOption func(*Chain)

// WithAgentic supplies the agentic orchestrator, preferred over every other
// strategy when present.
func WithAgentic(r retriever.Retriever) ChainOption {
	return func(c *Chain) { c.agentic = r }
}

// WithPlanner supplies the query-decomposition retriever, used for compound
// questions.
func WithPlanner(r retriever.Retriever) ChainOption {
	return func(c *Chain) { c.planner = r }
}

// WithMultiQuery supplies the template-based multi-query fusion retriever.
func WithMultiQuery(r retriever.Retriever) ChainOption {
	return func(c *Chain) { c.multiQuery = r }
}

// WithHyDE supplies the HyDE retriever.
func WithHyDE(r retriever.Retriever) ChainOption {
	return func(c *Chain) { c.hyde = r }
}

// WithCRAGGate supplies the corrective-retrieval gate applied after the
// primary strategy when its results grade below correct.
func WithCRAGGate(r retriever.Retriever) ChainOption {
	return func(c *Chain) { c.cragGate = r }
}

// WithParentStore enables parent-child expansion against the given store.
func WithParentStore(store retriever.ParentStore) ChainOption {
	return func(c *Chain) { c.parents = store }
}

// WithJudge sets the model used for grounding verification. Defaults to the
// generation model.
func WithJudge(judge llm.ChatModel) ChainOption {
	return func(c *Chain) { c.judge = judge }
}

// WithAnswerCache memoizes full responses per normalized question.
func WithAnswerCache(store cache.Cache, ttl time.Duration) ChainOption {
	return func(c *Chain) {
		c.answers = store
		if ttl > 0 {
			c.answerTTL = ttl
		}
	}
}

// WithEngineConfig overrides the pipeline tunables (confidence gate and
// thresholds, CRAG thresholds, grounding budget).
func WithEngineConfig(engine config.EngineConfig) ChainOption {
	return func(c *Chain) { c.engine = engine }
}

// WithChainLogger sets the logger.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

// WithGenerateOptions sets the provider tuning applied to every generation
// call.
func WithGenerateOptions(opts ...llm.GenerateOption) ChainOption {
	return func(c *Chain) { c.genOpts = opts }
}

// NewChain constructs a Chain over a direct retriever and a generation
// model. Strategy retrievers are optional; the cascade falls through to
// whatever is configured.
func NewChain(direct retriever.Retriever, model llm.ChatModel, opts ...ChainOption) *Chain {
	c := &Chain{
		direct:    direct,
		model:     model,
		engine:    config.DefaultEngineConfig(),
		logger:    slog.Default(),
		answerTTL: defaultAnswerCacheTTL,
		genOpts:   []llm.GenerateOption{llm.WithTemperature(0.2), llm.WithMaxTokens(2048)},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.judge == nil {
		c.judge = c.model
	}
	return c
}

// QueryOption configures one Query call.
type QueryOption func(*queryConfig)

type queryConfig struct {
	topK           int
	filter         map[string]any
	mode           AnswerMode
	useCRAG        bool
	useParentChild bool
	skipGrounding  bool
}

// WithTopK sets how many sources are offered to the model. Default 5.
func WithTopK(k int) QueryOption {
	return func(c *queryConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter bypasses strategy selection and retrieves with the given
// metadata filter directly.
func WithFilter(filter map[string]any) QueryOption {
	return func(c *queryConfig) { c.filter = filter }
}

// WithMode selects the answer style. Default ModeAnalysis.
func WithMode(mode AnswerMode) QueryOption {
	return func(c *queryConfig) { c.mode = mode }
}

// WithCRAG toggles the corrective-retrieval gate (default on when a gate is
// configured).
func WithCRAG(enabled bool) QueryOption {
	return func(c *queryConfig) { c.useCRAG = enabled }
}

// WithParentChild toggles parent-child expansion (default on when a parent
// store is configured).
func WithParentChild(enabled bool) QueryOption {
	return func(c *queryConfig) { c.useParentChild = enabled }
}

// WithSkipGrounding disables the LLM-as-judge grounding verification step.
func WithSkipGrounding() QueryOption {
	return func(c *queryConfig) { c.skipGrounding = true }
}

func (c *Chain) queryConfig(opts []QueryOption) queryConfig {
	cfg := queryConfig{
		topK:           defaultTopK,
		mode:           ModeAnalysis,
		useCRAG:        c.cragGate != nil,
		useParentChild: c.parents != nil,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Query answers a question end to end.
func (c *Chain) Query(ctx context.Context, question string, opts ...QueryOption) (*RAGResponse, error) {
	cfg := c.queryConfig(opts)

	question = strings.TrimSpace(question)
	if question == "" || len(tokenizer.Tokenize(question)) == 0 {
		return c.refusal(NoResultsMessage, RiskLow, nil), nil
	}

	cacheKey := "ragchain:answer:" + strings.ToLower(question)
	if c.answers != nil && len(cfg.filter) == 0 {
		if cached, ok, err := c.answers.Get(ctx, cacheKey); err == nil && ok {
			if resp, ok := cached.(*RAGResponse); ok {
				return resp, nil
			}
		}
	}

	docs, err := c.retrieve(ctx, question, cfg)
	if err != nil {
		return nil, fmt.Errorf("ragchain: retrieve: %w", err)
	}
	if len(docs) == 0 {
		return c.refusal(NoResultsMessage, RiskLow, nil), nil
	}

	if cfg.useParentChild && c.parents != nil {
		docs = retriever.ExpandToParents(ctx, docs, c.parents, cfg.topK)
	}
	if len(docs) > cfg.topK {
		docs = docs[:cfg.topK]
	}

	contextText, citations := BuildContext(docs)
	confidence := ComputeConfidence(docs)
	o11y.Histogram(ctx, "ragchain.confidence", confidence.Score)

	gate := c.engine.ConfidenceGate
	if gate == 0 {
		gate = defaultConfidenceGate
	}
	if confidence.Score < gate {
		resp := c.refusal(OutOfScopeMessage, RiskRefused, &confidence)
		resp.Validation.Warnings = []string{"skor kepercayaan retrieval di bawah ambang batas, generasi jawaban dilewati"}
		return resp, nil
	}

	system := SystemPrompt(cfg.mode, DetectQuestionType(question))
	user := UserPrompt(contextText, question)

	aiResp, err := c.model.Generate(ctx,
		[]schema.Message{schema.NewSystemMessage(system), schema.NewHumanMessage(user)},
		c.genOpts...)
	if err != nil {
		return nil, fmt.Errorf("ragchain: generate: %w", err)
	}

	answer, cited := ExtractCitedSources(aiResp.Text())
	validation := ValidateCitations(cited, len(citations))

	if !cfg.skipGrounding {
		score, ungrounded := VerifyGrounding(ctx, c.judge, answer, citations, c.engine.GroundingBudget)
		if score == nil {
			c.logger.Warn("ragchain: grounding verification unavailable", "question_type", string(DetectQuestionType(question)))
		}
		validation.GroundingScore = score
		validation.UngroundedClaims = ungrounded
	}

	resp := &RAGResponse{
		Answer:          answer,
		Citations:       citations,
		Sources:         sourceLabels(citations),
		Confidence:      confidence.Label,
		ConfidenceScore: confidence,
		Context:         contextText,
		Validation:      validation,
	}

	if c.answers != nil && len(cfg.filter) == 0 {
		if err := c.answers.Set(ctx, cacheKey, resp, c.answerTTL); err != nil {
			c.logger.Warn("ragchain: answer cache set failed", "error", err)
		}
	}
	return resp, nil
}

// QueryWithHistory prepends a compressed transcript of the last three turns
// to the question, then delegates to Query.
func (c *Chain) QueryWithHistory(ctx context.Context, question string, turns []schema.Turn, opts ...QueryOption) (*RAGResponse, error) {
	if len(turns) == 0 {
		return c.Query(ctx, question, opts...)
	}
	if len(turns) > historyTurnLimit {
		turns = turns[len(turns)-historyTurnLimit:]
	}

	var sb strings.Builder
	sb.WriteString("Konteks percakapan sebelumnya:\n")
	for _, turn := range turns {
		if turn.Input != nil {
			fmt.Fprintf(&sb, "T: %s\n", compressTurn(turn.Input.Text()))
		}
		if turn.Output != nil {
			fmt.Fprintf(&sb, "J: %s\n", compressTurn(turn.Output.Text()))
		}
	}
	fmt.Fprintf(&sb, "\nPertanyaan saat ini: %s", question)
	return c.Query(ctx, sb.String(), opts...)
}

const historyTurnMaxLen = 200

func compressTurn(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > historyTurnMaxLen {
		return text[:historyTurnMaxLen] + "…"
	}
	return text
}

// retrieve picks exactly one strategy by the fixed priority cascade, then
// applies the corrective gate.
func (c *Chain) retrieve(ctx context.Context, question string, cfg queryConfig) ([]schema.Document, error) {
	ropts := []retriever.Option{retriever.WithTopK(cfg.topK)}

	if len(cfg.filter) > 0 {
		return c.direct.Retrieve(ctx, question, append(ropts, retriever.WithMetadata(cfg.filter))...)
	}

	strategy, name := c.selectStrategy(question)
	o11y.Counter(ctx, "ragchain.strategy."+name, 1)
	docs, err := retriever.TimedRetrieve(ctx, strategy, name, question, ropts...)
	if err != nil && strategy != c.direct {
		c.logger.Warn("ragchain: strategy failed, falling back to direct", "strategy", name, "error", err)
		docs, err = c.direct.Retrieve(ctx, question, ropts...)
	}
	if err != nil {
		return nil, err
	}

	if cfg.useCRAG && c.cragGate != nil && len(docs) > 0 {
		correct := c.engine.CRAGCorrect
		if correct == 0 {
			correct = 0.7
		}
		if averageDocScore(docs) < correct {
			corrected, err := c.cragGate.Retrieve(ctx, question, ropts...)
			if err != nil {
				c.logger.Warn("ragchain: corrective retrieval failed, keeping original", "error", err)
			} else if len(corrected) > 0 {
				docs = corrected
			}
		}
	}
	return docs, nil
}

func (c *Chain) selectStrategy(question string) (retriever.Retriever, string) {
	switch {
	case c.agentic != nil:
		return c.agentic, "agentic"
	case c.planner != nil && retriever.IsCompoundQuestion(question):
		return c.planner, "decompose"
	case c.multiQuery != nil:
		return c.multiQuery, "multi_query"
	case c.hyde != nil:
		return c.hyde, "hyde"
	default:
		return c.direct, "direct"
	}
}

func (c *Chain) refusal(message, risk string, confidence *ConfidenceScore) *RAGResponse {
	score := ConfidenceScore{Score: 0, Label: ConfidenceNone}
	if confidence != nil {
		score = *confidence
	}
	return &RAGResponse{
		Answer:     message,
		Citations:  []Citation{},
		Sources:    []string{},
		Confidence: score.Label,
		ConfidenceScore: score,
		Validation: ValidationResult{
			IsValid:           true,
			HallucinationRisk: risk,
		},
	}
}

// BuildContext formats docs as numbered source blocks and builds the
// parallel citations list, including a snippet of each source in its
// metadata.
func BuildContext(docs []schema.Document) (string, []Citation) {
	var sb strings.Builder
	citations := make([]Citation, 0, len(docs))
	for i, doc := range docs {
		display := displayCitation(doc)
		fmt.Fprintf(&sb, "[%d] %s\n%s\n---\n", i+1, display, doc.Content)

		snippet := doc.Content
		if len(snippet) > snippetLength {
			snippet = snippet[:snippetLength]
		}
		meta := map[string]any{"snippet": snippet}
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		citations = append(citations, Citation{
			Number:     i + 1,
			CitationID: citationID(doc),
			Citation:   display,
			Score:      roundScore(doc.Score),
			Metadata:   meta,
		})
	}
	return sb.String(), citations
}

func displayCitation(doc schema.Document) string {
	if citation, ok := doc.Metadata["citation"].(string); ok && citation != "" {
		return citation
	}
	return doc.ID
}

func citationID(doc schema.Document) string {
	if id, ok := doc.Metadata["citation_id"].(string); ok && id != "" {
		return id
	}
	return doc.ID
}

func sourceLabels(citations []Citation) []string {
	labels := make([]string, len(citations))
	for i, c := range citations {
		labels[i] = c.Citation
	}
	return labels
}

func roundScore(s float64) float64 {
	return float64(int(s*10000+0.5)) / 10000
}

func averageDocScore(docs []schema.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, doc := range docs {
		sum += doc.Score
	}
	return sum / float64(len(docs))
}
