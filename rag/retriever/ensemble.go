package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/schema"
)

// FusionStrategy merges multiple ranked result sets into one ranked list.
type FusionStrategy interface {
	Fuse(ctx context.Context, resultSets [][]schema.Document) ([]schema.Document, error)
}

const defaultRRFK = 60

// RRFStrategy fuses result sets with Reciprocal Rank Fusion.
type RRFStrategy struct {
	K int
}

// NewRRFStrategy constructs an RRFStrategy. k<=0 defaults to 60.
func NewRRFStrategy(k int) *RRFStrategy {
	if k <= 0 {
		k = defaultRRFK
	}
	return &RRFStrategy{K: k}
}

// Fuse implements FusionStrategy. The output order is deterministic:
// descending fused score, ties broken by document id.
func (s *RRFStrategy) Fuse(ctx context.Context, resultSets [][]schema.Document) ([]schema.Document, error) {
	scores := make(map[string]float64)
	docs := make(map[string]schema.Document)
	var order []string
	for _, set := range resultSets {
		for rank, doc := range set {
			if _, seen := scores[doc.ID]; !seen {
				order = append(order, doc.ID)
			}
			scores[doc.ID] += 1.0 / float64(s.K+rank+1)
			if existing, ok := docs[doc.ID]; !ok || doc.Score > existing.Score {
				docs[doc.ID] = doc
			}
		}
	}

	result := make([]schema.Document, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		doc.Score = scores[id]
		result = append(result, doc)
	}
	sortFused(result)
	return result, nil
}

// WeightedStrategy fuses result sets by a weighted sum of each set's scores.
type WeightedStrategy struct {
	weights []float64
}

// NewWeightedStrategy constructs a WeightedStrategy with one weight per
// expected result set.
func NewWeightedStrategy(weights []float64) *WeightedStrategy {
	return &WeightedStrategy{weights: weights}
}

// Fuse implements FusionStrategy.
func (s *WeightedStrategy) Fuse(ctx context.Context, resultSets [][]schema.Document) ([]schema.Document, error) {
	if len(s.weights) != len(resultSets) {
		return nil, fmt.Errorf("retriever: weighted fuse: %d weights for %d result sets", len(s.weights), len(resultSets))
	}

	var sum float64
	for _, w := range s.weights {
		sum += w
	}
	if sum == 0 {
		return nil, fmt.Errorf("retriever: weighted fuse: weights sum to zero")
	}
	normalized := make([]float64, len(s.weights))
	for i, w := range s.weights {
		normalized[i] = w / sum
	}

	scores := make(map[string]float64)
	docs := make(map[string]schema.Document)
	var order []string
	for i, set := range resultSets {
		for _, doc := range set {
			if _, seen := scores[doc.ID]; !seen {
				order = append(order, doc.ID)
			}
			scores[doc.ID] += doc.Score * normalized[i]
			if _, ok := docs[doc.ID]; !ok {
				docs[doc.ID] = doc
			}
		}
	}

	result := make([]schema.Document, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		doc.Score = scores[id]
		result = append(result, doc)
	}
	sortFused(result)
	return result, nil
}

// EnsembleRetriever runs several retrievers and fuses their results with a
// FusionStrategy. A nil strategy defaults to RRF(60).
type EnsembleRetriever struct {
	retrievers []Retriever
	strategy   FusionStrategy
	hooks      Hooks
}

// EnsembleOption configures an EnsembleRetriever at construction time.
type EnsembleOption func(*EnsembleRetriever)

// WithEnsembleHooks attaches lifecycle hooks to an EnsembleRetriever.
func WithEnsembleHooks(hooks Hooks) EnsembleOption {
	return func(r *EnsembleRetriever) { r.hooks = hooks }
}

// NewEnsembleRetriever constructs an EnsembleRetriever over retrievers.
func NewEnsembleRetriever(retrievers []Retriever, strategy FusionStrategy, opts ...EnsembleOption) *EnsembleRetriever {
	if strategy == nil {
		strategy = NewRRFStrategy(defaultRRFK)
	}
	r := &EnsembleRetriever{retrievers: retrievers, strategy: strategy}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever.
func (r *EnsembleRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)

	sets := make([][]schema.Document, len(r.retrievers))
	for i, inner := range r.retrievers {
		docs, err := inner.Retrieve(ctx, query, opts...)
		if err != nil {
			err = fmt.Errorf("ensemble retriever %d: %w", i, err)
			if r.hooks.AfterRetrieve != nil {
				r.hooks.AfterRetrieve(ctx, nil, err)
			}
			return nil, err
		}
		sets[i] = docs
	}

	fused, err := r.strategy.Fuse(ctx, sets)
	if err != nil {
		err = fmt.Errorf("ensemble fuse: %w", err)
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
