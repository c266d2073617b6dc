package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

// CRAGGrade is the quality label CRAGGateRetriever assigns to a retrieval.
type CRAGGrade string

const (
	// CRAGCorrect means the retrieval's average score is high enough to use as-is.
	CRAGCorrect CRAGGrade = "correct"
	// CRAGAmbiguous means the retrieval is borderline and should be supplemented.
	CRAGAmbiguous CRAGGrade = "ambiguous"
	// CRAGIncorrect means the retrieval is poor and should be replaced.
	CRAGIncorrect CRAGGrade = "incorrect"
)

const (
	cragGateCorrectThreshold   = 0.7
	cragGateAmbiguousThreshold = 0.3
)

const cragRephrasePrompt = "The following question did not retrieve good results from a document search. Rewrite it as a single, clearer search query. Respond with only the rewritten query.\n\nQuestion: %s"

// CRAGGateRetriever grades an inner retrieval as a whole by its average
// score and, when the grade is not correct, asks an LLM to rephrase the
// query and re-retrieves: for ambiguous grades the rephrased results are
// RRF-merged with the original, for incorrect grades they replace it.
type CRAGGateRetriever struct {
	inner     Retriever
	model     llm.ChatModel
	rrfK      int
	correct   float64
	ambiguous float64
	hooks     Hooks
}

// CRAGGateOption configures a CRAGGateRetriever at construction time.
type CRAGGateOption func(*CRAGGateRetriever)

// WithCRAGGateThreshold overrides the correct/ambiguous cut points. Default
// 0.7/0.3.
func WithCRAGGateThreshold(correct, ambiguous float64) CRAGGateOption {
	return func(r *CRAGGateRetriever) {
		r.correct = correct
		r.ambiguous = ambiguous
	}
}

// WithCRAGGateRRFK sets the RRF k used when merging ambiguous-grade
// rephrased results with the original. Values <= 0 are ignored.
func WithCRAGGateRRFK(k int) CRAGGateOption {
	return func(r *CRAGGateRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithCRAGGateHooks attaches lifecycle hooks to a CRAGGateRetriever.
func WithCRAGGateHooks(hooks Hooks) CRAGGateOption {
	return func(r *CRAGGateRetriever) { r.hooks = hooks }
}

// NewCRAGGateRetriever constructs a CRAGGateRetriever. model may be nil, in
// which case rephrasing is skipped and the original retrieval is returned
// regardless of grade.
func NewCRAGGateRetriever(inner Retriever, model llm.ChatModel, opts ...CRAGGateOption) *CRAGGateRetriever {
	r := &CRAGGateRetriever{
		inner:     inner,
		model:     model,
		rrfK:      defaultRRFK,
		correct:   cragGateCorrectThreshold,
		ambiguous: cragGateAmbiguousThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *CRAGGateRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	docs, err := r.inner.Retrieve(ctx, query, opts...)
	if err != nil {
		err = fmt.Errorf("crag gate inner retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	grade := r.grade(docs)
	if grade == CRAGCorrect || r.model == nil {
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, docs, nil)
		}
		return docs, nil
	}

	rephrased, err := r.rephrase(ctx, query)
	if err != nil {
		err = fmt.Errorf("crag gate rephrase: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	newDocs, err := r.inner.Retrieve(ctx, rephrased, opts...)
	if err != nil {
		err = fmt.Errorf("crag gate rephrased retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	var result []schema.Document
	switch grade {
	case CRAGAmbiguous:
		fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, [][]schema.Document{docs, newDocs})
		if err != nil {
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		result = truncate(fused, cfg.TopK)
	default: // CRAGIncorrect
		if len(newDocs) == 0 {
			result = docs
		} else {
			result = newDocs
		}
	}

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}

func (r *CRAGGateRetriever) grade(docs []schema.Document) CRAGGrade {
	if len(docs) == 0 {
		return CRAGIncorrect
	}
	var sum float64
	for _, doc := range docs {
		sum += doc.Score
	}
	avg := sum / float64(len(docs))
	switch {
	case avg >= r.correct:
		return CRAGCorrect
	case avg >= r.ambiguous:
		return CRAGAmbiguous
	default:
		return CRAGIncorrect
	}
}

func (r *CRAGGateRetriever) rephrase(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(cragRephrasePrompt, query)
	resp, err := r.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
