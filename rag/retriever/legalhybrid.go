package retriever

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/peraturan-ai/legalrag/internal/syncutil"
	"github.com/peraturan-ai/legalrag/kg"
	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/legalref"
	"github.com/peraturan-ai/legalrag/rag/queryexpand"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"
	"github.com/peraturan-ai/legalrag/schema"
)

// authorityMultipliers weights candidate scores by the issuing body's place
// in the Indonesian legal hierarchy, so regional Perda chunks don't outrank
// national UU/PP chunks that have nearly identical cosine similarity.
var authorityMultipliers = map[string]float64{
	"UU":      1.50,
	"PP":      1.20,
	"Perpres": 1.10,
	"Permen":  1.05,
	"Perda":   0.60,
}

const defaultAuthorityMultiplier = 1.00

// nationalLawKeywords triggers LegalHybridRetriever's national-law
// preference (step 10) when no reranker is configured.
var nationalLawKeywords = []string{
	"mendirikan pt", "pendirian pt", "syarat pt", "badan hukum",
	"perseroan terbatas", "modal dasar", "akta pendirian",
	"phk", "pesangon", "upah minimum", "hubungan kerja", "perjanjian kerja",
	"undang-undang", "peraturan pemerintah", "hukum nasional",
}

var nationalJenis = map[string]bool{"UU": true, "PP": true, "Perpres": true, "Permen": true}

const (
	kgBoostFactor  = 1.15
	kgBoostTopN    = 5
	kgExpandHops   = 1
	kgBoostDeadline = 200 * time.Millisecond
)

// LegalHybridOption configures a LegalHybridRetriever at construction time.
type LegalHybridOption func(*LegalHybridRetriever)

// WithLegalHybridRRFK sets the RRF k constant. Values <= 0 keep the default
// of 60.
func WithLegalHybridRRFK(k int) LegalHybridOption {
	return func(r *LegalHybridRetriever) {
		if k > 0 {
			r.rrfK = k
		}
	}
}

// WithKnowledgeGraph attaches a knowledge graph for the KG-boost stage.
// A nil graph (the default) skips that stage.
func WithKnowledgeGraph(g *kg.Graph) LegalHybridOption {
	return func(r *LegalHybridRetriever) { r.graph = g }
}

// WithLegalReranker attaches a reranker invoked in the final stage. A nil
// reranker (the default) skips reranking and widens the candidate pool
// instead.
func WithLegalReranker(rr Reranker) LegalHybridOption {
	return func(r *LegalHybridRetriever) { r.reranker = rr }
}

// WithLegalHybridHooks attaches lifecycle hooks to a LegalHybridRetriever.
func WithLegalHybridHooks(hooks Hooks) LegalHybridOption {
	return func(r *LegalHybridRetriever) { r.hooks = hooks }
}

// LegalHybridQueryOption configures a single hybrid_search call beyond the
// shared Option/Config (topK, threshold, metadata filter).
type LegalHybridQueryOption func(*legalHybridQueryConfig)

type legalHybridQueryConfig struct {
	expandQueries bool
	useReranking  bool
	minScore      float64
	hasMinScore   bool
}

// WithExpandQueries toggles query expansion (default true).
func WithExpandQueries(expand bool) LegalHybridQueryOption {
	return func(c *legalHybridQueryConfig) { c.expandQueries = expand }
}

// WithUseReranking toggles the rerank stage when a reranker is configured
// (default true).
func WithUseReranking(use bool) LegalHybridQueryOption {
	return func(c *legalHybridQueryConfig) { c.useReranking = use }
}

// WithMinScore drops candidates scoring below min after boosting.
func WithMinScore(min float64) LegalHybridQueryOption {
	return func(c *legalHybridQueryConfig) { c.minScore = min; c.hasMinScore = true }
}

// LegalHybridRetriever is the engine's full hybrid search: dense and
// sparse fan-out over query-expansion variants, auto legal-reference
// filtering, RRF fusion, knowledge-graph boost, authority boost,
// national-law preference, a min-score cut, and optional reranking.
type LegalHybridRetriever struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	bm25     BM25Searcher
	graph    *kg.Graph
	reranker Reranker
	rrfK     int
	hooks    Hooks
}

// NewLegalHybridRetriever constructs a LegalHybridRetriever.
func NewLegalHybridRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, bm25 BM25Searcher, opts ...LegalHybridOption) *LegalHybridRetriever {
	r := &LegalHybridRetriever{store: store, embedder: embedder, bm25: bm25, rrfK: defaultRRFK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever using expand_queries=true, use_reranking=true,
// and no min_score, matching hybrid_search's defaults. Use Search directly
// for explicit control over those knobs.
func (r *LegalHybridRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	return r.Search(ctx, query, opts, nil)
}

// Search runs the full hybrid_search algorithm.
func (r *LegalHybridRetriever) Search(ctx context.Context, query string, opts []Option, queryOpts []LegalHybridQueryOption) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)
	qcfg := legalHybridQueryConfig{expandQueries: true, useReranking: true}
	for _, opt := range queryOpts {
		opt(&qcfg)
	}

	result, err := r.search(ctx, query, cfg, qcfg)
	if err != nil {
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}
	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}

func (r *LegalHybridRetriever) search(ctx context.Context, query string, cfg Config, qcfg legalHybridQueryConfig) ([]schema.Document, error) {
	// Step 1: candidate pool sizing.
	poolMultiplier := 2
	switch {
	case qcfg.useReranking && r.reranker != nil:
		poolMultiplier = 3
	case r.reranker == nil:
		poolMultiplier = 4
	}
	candidateK := cfg.TopK * poolMultiplier
	if candidateK < 1 {
		candidateK = poolMultiplier
	}

	// Step 2: auto-filter.
	filter := cfg.Metadata
	autoFiltered := false
	if len(filter) == 0 {
		if ref := legalref.DetectQuery(query); ref != nil {
			filter = filterFromReference(ref)
			autoFiltered = true
		}
	}

	// Step 3: query expansion.
	queries := []string{query}
	if qcfg.expandQueries {
		queries = queryexpand.Expand(query)
	}

	// Step 4: stage fan-out. Dense and sparse stages run concurrently per
	// variant and join before dedup; result slots are indexed per variant so
	// fusion stays deterministic regardless of completion order.
	type stageResult struct {
		docs []schema.Document
		err  error
	}
	denseResults := make([]stageResult, len(queries))
	sparseResults := make([]stageResult, len(queries))
	pool := syncutil.NewWorkerPool(2 * len(queries))
	for i, q := range queries {
		pool.Submit(func() {
			docs, err := r.denseSearch(ctx, q, candidateK, cfg.Threshold, filter)
			denseResults[i] = stageResult{docs, err}
		})
		if r.bm25 != nil {
			pool.Submit(func() {
				docs, err := r.bm25.Search(ctx, q, candidateK)
				sparseResults[i] = stageResult{docs, err}
			})
		}
	}
	pool.Wait()

	var allDense, allSparse []schema.Document
	for _, res := range denseResults {
		if res.err != nil {
			return nil, fmt.Errorf("legalhybrid dense search: %w", res.err)
		}
		allDense = append(allDense, res.docs...)
	}
	for _, res := range sparseResults {
		if res.err != nil {
			return nil, fmt.Errorf("legalhybrid sparse search: %w", res.err)
		}
		allSparse = append(allSparse, res.docs...)
	}

	// Step 5: per-stage dedup.
	denseDeduped := dedup(allDense)
	sparseDeduped := dedup(allSparse)

	// Step 6: filter fallback.
	if autoFiltered && len(denseDeduped) == 0 {
		var refiltered []schema.Document
		for _, q := range queries {
			dense, err := r.denseSearch(ctx, q, candidateK, cfg.Threshold, nil)
			if err != nil {
				return nil, fmt.Errorf("legalhybrid dense search (unfiltered retry): %w", err)
			}
			refiltered = append(refiltered, dense...)
		}
		denseDeduped = dedup(refiltered)
	}

	// Step 7: RRF fusion.
	fused, err := NewRRFStrategy(r.rrfK).Fuse(ctx, [][]schema.Document{denseDeduped, sparseDeduped})
	if err != nil {
		return nil, fmt.Errorf("legalhybrid fuse: %w", err)
	}

	poolSize := cfg.TopK * 2
	if poolSize < 1 {
		poolSize = len(fused)
	}
	candidates := truncate(fused, poolSize)

	// Step 8: KG boost.
	candidates = r.boostWithKG(ctx, candidates)

	// Step 9: authority boost.
	candidates = boostWithAuthority(candidates)

	// Step 10: national-law preference.
	if r.reranker == nil && isNationalLawQuery(query) {
		candidates = prioritizeNational(candidates, cfg.TopK)
	}

	// Step 11: min-score cut.
	if qcfg.hasMinScore {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if c.Score >= qcfg.minScore {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	// Step 12: rerank.
	if qcfg.useReranking && r.reranker != nil {
		reranked, err := r.reranker.Rerank(ctx, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("legalhybrid rerank: %w", err)
		}
		candidates = reranked
	}

	// Step 13: return.
	return truncate(candidates, cfg.TopK), nil
}

func (r *LegalHybridRetriever) denseSearch(ctx context.Context, query string, k int, threshold float64, filter map[string]any) ([]schema.Document, error) {
	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	var searchOpts []vectorstore.SearchOption
	if threshold != 0 {
		searchOpts = append(searchOpts, vectorstore.WithThreshold(threshold))
	}
	if len(filter) > 0 {
		searchOpts = append(searchOpts, vectorstore.WithFilter(filter))
	}
	return r.store.Search(ctx, vec, k, searchOpts...)
}

func filterFromReference(f *legalref.Filter) map[string]any {
	filter := map[string]any{
		"jenis_dokumen": f.JenisDokumen,
		"nomor":         f.Nomor,
		"tahun":         strconv.Itoa(f.Tahun),
	}
	if f.Pasal != "" {
		filter["pasal"] = f.Pasal
	}
	if f.Ayat != "" {
		filter["ayat"] = f.Ayat
	}
	return filter
}

func regulationIDFromMetadata(doc schema.Document) (string, bool) {
	jenis, _ := doc.Metadata["jenis_dokumen"].(string)
	nomor, _ := doc.Metadata["nomor"].(string)
	tahun, _ := doc.Metadata["tahun"].(string)
	if jenis == "" || nomor == "" || tahun == "" {
		return "", false
	}
	return kg.NormalizeRegulationID(jenis, nomor, tahun), true
}

func (r *LegalHybridRetriever) boostWithKG(ctx context.Context, candidates []schema.Document) []schema.Document {
	if r.graph == nil || len(candidates) == 0 {
		return candidates
	}

	top := candidates
	if len(top) > kgBoostTopN {
		top = top[:kgBoostTopN]
	}
	seen := make(map[string]bool)
	var sourceIDs []string
	for _, c := range top {
		if id, ok := regulationIDFromMetadata(c); ok && !seen[id] {
			seen[id] = true
			sourceIDs = append(sourceIDs, id)
		}
	}
	if len(sourceIDs) == 0 {
		return candidates
	}

	// Expand from each source regulation independently (not as one batched
	// BFS) so two source regulations that are themselves 1-hop neighbors of
	// each other are each still discovered as "related".
	relatedSet := make(map[string]bool)
	for _, id := range sourceIDs {
		related, _ := r.graph.Expand(ctx, []string{id}, kgExpandHops, kgBoostDeadline)
		for _, r := range related {
			relatedSet[r] = true
		}
	}
	if len(relatedSet) == 0 {
		return candidates
	}

	boosted := make([]schema.Document, len(candidates))
	copy(boosted, candidates)
	for i, c := range boosted {
		if id, ok := regulationIDFromMetadata(c); ok && relatedSet[id] {
			boosted[i].Score = c.Score * kgBoostFactor
		}
	}
	sortByScore(boosted)
	return boosted
}

func boostWithAuthority(candidates []schema.Document) []schema.Document {
	boosted := make([]schema.Document, len(candidates))
	for i, c := range candidates {
		jenis, _ := c.Metadata["jenis_dokumen"].(string)
		multiplier, ok := authorityMultipliers[jenis]
		if !ok {
			multiplier = defaultAuthorityMultiplier
		}
		c.Score *= multiplier
		boosted[i] = c
	}
	sortByScore(boosted)
	return boosted
}

func isNationalLawQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range nationalLawKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func prioritizeNational(candidates []schema.Document, topK int) []schema.Document {
	var national, regional []schema.Document
	for _, c := range candidates {
		jenis, _ := c.Metadata["jenis_dokumen"].(string)
		if nationalJenis[jenis] {
			national = append(national, c)
		} else {
			regional = append(regional, c)
		}
	}
	prioritized := append(national, regional...)
	return truncate(prioritized, topK*2)
}
