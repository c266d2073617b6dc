package retriever

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

// compoundKeywords signal that a question bundles several sub-questions and
// is worth decomposing before retrieval.
var compoundKeywords = []string{
	"dan", "serta", "juga", "selain", "dibandingkan", "antara", "vs", "versus",
}

const (
	minSubQueries = 2
	maxSubQueries = 4
)

const decomposePrompt = "Pecah pertanyaan hukum berikut menjadi %d sampai %d sub-pertanyaan yang masing-masing dapat dijawab dengan satu pencarian dokumen. Tulis setiap sub-pertanyaan pada baris terpisah sebagai daftar bernomor.\n\nPertanyaan: %s"

// subQueryLine matches one numbered ("1." / "1)") or bulleted ("-" / "*" /
// "•") list item in an LLM decomposition response.
var subQueryLine = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*(.+)$`)

// IsCompoundQuestion reports whether question contains a compound-question
// keyword as a standalone word.
func IsCompoundQuestion(question string) bool {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, "?.!,;:()\"'")
		for _, kw := range compoundKeywords {
			if word == kw {
				return true
			}
		}
	}
	return false
}

// ParseSubQueries extracts list items from an LLM decomposition response,
// capped at maxSubQueries. Lines that are not list items are ignored.
func ParseSubQueries(response string) []string {
	var subs []string
	for _, line := range strings.Split(response, "\n") {
		m := subQueryLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.TrimSpace(m[1])
		if q == "" {
			continue
		}
		subs = append(subs, q)
		if len(subs) == maxSubQueries {
			break
		}
	}
	return subs
}

// QueryPlannerRetriever detects compound questions, decomposes them into
// sub-questions with an LLM, retrieves each sub-question through the inner
// retriever, and RRF-merges the per-sub-question results. Non-compound
// questions, unparseable decompositions, and LLM failures all fall back to
// a single retrieval with the original question.
type QueryPlannerRetriever struct {
	inner Retriever
	model llm.ChatModel
	rrfK  int
	hooks Hooks
}

// QueryPlannerOption configures a QueryPlannerRetriever at construction time.
type QueryPlannerOption func(*QueryPlannerRetriever)

// WithQueryPlannerRRFK sets the RRF k used to merge sub-question results.
// Values <= 0 are ignored.
func WithQueryPlannerRRFK(k int) QueryPlannerOption {
	return func(r *QueryPlannerRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithQueryPlannerHooks attaches lifecycle hooks to a QueryPlannerRetriever.
func WithQueryPlannerHooks(hooks Hooks) QueryPlannerOption {
	return func(r *QueryPlannerRetriever) { r.hooks = hooks }
}

// NewQueryPlannerRetriever constructs a QueryPlannerRetriever. model may be
// nil, in which case every question takes the direct path.
func NewQueryPlannerRetriever(inner Retriever, model llm.ChatModel, opts ...QueryPlannerOption) *QueryPlannerRetriever {
	r := &QueryPlannerRetriever{inner: inner, model: model, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *QueryPlannerRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	docs, err := r.retrieve(ctx, query, opts)
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, docs, err)
	}
	return docs, err
}

func (r *QueryPlannerRetriever) retrieve(ctx context.Context, query string, opts []Option) ([]schema.Document, error) {
	subs := r.Decompose(ctx, query)
	if len(subs) < minSubQueries {
		docs, err := r.inner.Retrieve(ctx, query, opts...)
		if err != nil {
			return nil, fmt.Errorf("query planner direct retrieve: %w", err)
		}
		return docs, nil
	}

	cfg := ApplyOptions(opts...)
	resultSets := make([][]schema.Document, 0, len(subs))
	for _, sub := range subs {
		docs, err := r.inner.Retrieve(ctx, sub, opts...)
		if err != nil {
			return nil, fmt.Errorf("query planner retrieve %q: %w", sub, err)
		}
		resultSets = append(resultSets, docs)
	}

	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, resultSets)
	if err != nil {
		return nil, fmt.Errorf("query planner fuse: %w", err)
	}
	return truncate(fused, cfg.TopK), nil
}

// Decompose asks the LLM to split a compound question into sub-questions.
// It returns nil for non-compound questions, when no model is configured,
// and when the LLM call fails or its answer yields no parseable list.
func (r *QueryPlannerRetriever) Decompose(ctx context.Context, query string) []string {
	if r.model == nil || !IsCompoundQuestion(query) {
		return nil
	}
	prompt := fmt.Sprintf(decomposePrompt, minSubQueries, maxSubQueries, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil || resp == nil {
		return nil
	}
	return ParseSubQueries(resp.Text())
}
