package retriever

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/peraturan-ai/legalrag/schema"
)

// multiQueryFusionTemplates are the fixed Indonesian legal-domain query
// templates used to generate variants without an LLM call. The first is
// always the bare core topic.
var multiQueryFusionTemplates = []string{
	"%s",
	"Jelaskan tentang %s",
	"Apa ketentuan hukum mengenai %s",
	"Pasal yang mengatur %s",
	"Definisi dan ruang lingkup %s",
}

var multiQueryFusionStripWords = map[string]struct{}{
	"apa": {}, "bagaimana": {}, "siapa": {}, "kapan": {}, "dimana": {},
	"mengapa": {}, "berapa": {}, "apakah": {}, "itu": {}, "yang": {},
	"adalah": {}, "dari": {},
}

var multiQueryFusionPunctuation = regexp.MustCompile(`[?.!,;:]+`)

// MultiQueryFusionRetriever generates 5 deterministic, template-based query
// variants of an Indonesian legal question, retrieves with each, and
// RRF-merges the results. Unlike MultiQueryRetriever, it makes no LLM call.
type MultiQueryFusionRetriever struct {
	inner Retriever
	rrfK  int
	hooks Hooks
}

// MultiQueryFusionOption configures a MultiQueryFusionRetriever at
// construction time.
type MultiQueryFusionOption func(*MultiQueryFusionRetriever)

// WithMultiQueryFusionRRFK sets the RRF k constant. Values <= 0 are ignored.
func WithMultiQueryFusionRRFK(k int) MultiQueryFusionOption {
	return func(r *MultiQueryFusionRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithMultiQueryFusionHooks attaches lifecycle hooks to a
// MultiQueryFusionRetriever.
func WithMultiQueryFusionHooks(hooks Hooks) MultiQueryFusionOption {
	return func(r *MultiQueryFusionRetriever) { r.hooks = hooks }
}

// NewMultiQueryFusionRetriever constructs a MultiQueryFusionRetriever.
func NewMultiQueryFusionRetriever(inner Retriever, opts ...MultiQueryFusionOption) *MultiQueryFusionRetriever {
	r := &MultiQueryFusionRetriever{inner: inner, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateVariants produces the 5 deterministic query variants for question.
func GenerateVariants(question string) []string {
	core := extractCoreTopic(question)
	variants := make([]string, len(multiQueryFusionTemplates))
	for i, tmpl := range multiQueryFusionTemplates {
		variants[i] = fmt.Sprintf(tmpl, core)
	}
	return variants
}

func extractCoreTopic(question string) string {
	cleaned := multiQueryFusionPunctuation.ReplaceAllString(question, "")

	words := strings.Fields(cleaned)
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if _, strip := multiQueryFusionStripWords[strings.ToLower(w)]; !strip {
			filtered = append(filtered, w)
		}
	}

	core := strings.TrimSpace(strings.Join(filtered, " "))
	if core == "" {
		core = strings.TrimSpace(multiQueryFusionPunctuation.ReplaceAllString(question, ""))
	}
	return core
}

// Retrieve implements Retriever.
func (r *MultiQueryFusionRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	variants := GenerateVariants(query)

	sets := make([][]schema.Document, 0, len(variants))
	for _, variant := range variants {
		docs, err := r.inner.Retrieve(ctx, variant, opts...)
		if err != nil {
			err = fmt.Errorf("multiquery fusion retrieve %q: %w", variant, err)
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		sets = append(sets, docs)
	}

	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, sets)
	if err != nil {
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	result := truncate(fused, cfg.TopK)
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}
