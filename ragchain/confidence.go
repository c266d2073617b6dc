package ragchain

import (
	"math"

	"github.com/peraturan-ai/legalrag/schema"
)

// The confidence formula is calibrated for RRF-fused scores with k=60: a
// document ranked first in both the dense and sparse lists accumulates
// 2/(60+1), which is treated as the practical maximum; first place in just
// one list scores 1/(60+1).
const (
	rrfMaxScore  = 2.0 / 61.0
	rrfGoodScore = 1.0 / 61.0

	// strongResultThreshold marks a score as meaningful retrieval for the
	// count factor.
	strongResultThreshold = 0.8 * rrfGoodScore
)

// Per-factor weights. Top/average quality dominates; authority of the top
// documents, score consistency, and the number of strong results share the
// rest.
const (
	weightQuality     = 0.40
	weightAuthority   = 0.20
	weightConsistency = 0.20
	weightCount       = 0.20

	topScoreShare = 0.7
	avgScoreShare = 0.3

	diminishAbove = 0.85
	penalizeBelow = 0.30
)

// authorityWeight maps a regulation jenis to its contribution to the
// authority factor, on the same national-hierarchy ordering the retriever's
// boost multipliers use.
var authorityWeight = map[string]float64{
	"UU":      1.0,
	"PP":      0.9,
	"Perpres": 0.8,
	"Permen":  0.7,
	"Perda":   0.6,
}

const defaultAuthorityWeight = 0.5

// Confidence thresholds used by the label function and the generation gate.
const (
	labelHighThreshold    = 0.65
	labelMediumThreshold  = 0.40
	defaultConfidenceGate = 0.15
)

// ConfidenceLabel maps a numeric score to its Indonesian label. Scores
// exactly at a threshold take the higher label.
func ConfidenceLabel(score float64) string {
	switch {
	case score >= labelHighThreshold:
		return ConfidenceTinggi
	case score >= labelMediumThreshold:
		return ConfidenceSedang
	default:
		return ConfidenceRendah
	}
}

// ComputeConfidence scores retrieval quality on four factors: normalized
// top and average scores, the rank-weighted authority of the top three
// documents, the scale-invariant variance of the score distribution, and
// how many results clear the strength threshold. Scores above 0.85 see
// diminishing returns; a weak quality factor proportionally caps the
// blended score.
func ComputeConfidence(docs []schema.Document) ConfidenceScore {
	if len(docs) == 0 {
		return ConfidenceScore{Score: 0, Label: ConfidenceNone}
	}

	top := docs[0].Score
	var sum float64
	for _, doc := range docs {
		sum += doc.Score
	}
	avg := sum / float64(len(docs))

	normTop := clamp01(top / rrfMaxScore)
	normAvg := clamp01(avg / rrfMaxScore)
	quality := topScoreShare*normTop + avgScoreShare*normAvg

	authority := authorityFactor(docs)
	consistency := consistencyFactor(docs, avg)
	count := countFactor(docs)

	score := weightQuality*quality +
		weightAuthority*authority +
		weightConsistency*consistency +
		weightCount*count

	if score > diminishAbove {
		score = diminishAbove + (score-diminishAbove)*0.5
	}
	// Authority and consistency describe the shape of the result set, not
	// its relevance; when the underlying scores are weak they must not prop
	// the blended score past the generation gate.
	if quality < penalizeBelow {
		score *= quality / penalizeBelow
	}
	score = clamp01(score)

	return ConfidenceScore{
		Score:        score,
		Label:        ConfidenceLabel(score),
		TopScore:     top,
		AverageScore: avg,
	}
}

// authorityFactor averages the top three documents' type authority, each
// weighted by its own normalized score so higher-ranked retrieved documents
// matter more.
func authorityFactor(docs []schema.Document) float64 {
	n := len(docs)
	if n > 3 {
		n = 3
	}
	if n == 0 {
		return defaultAuthorityWeight
	}
	var sum float64
	for _, doc := range docs[:n] {
		jenis, _ := doc.Metadata["jenis_dokumen"].(string)
		w, ok := authorityWeight[jenis]
		if !ok {
			w = defaultAuthorityWeight
		}
		normScore := clamp01(doc.Score / rrfMaxScore)
		sum += w * (0.5 + 0.5*normScore)
	}
	return sum / float64(n)
}

// consistencyFactor rewards score distributions whose variance is small
// relative to the squared mean, floored at 0.3. A single result gets a
// moderate 0.7.
func consistencyFactor(docs []schema.Document, mean float64) float64 {
	if len(docs) < 2 {
		return 0.7
	}
	var variance float64
	for _, doc := range docs {
		d := doc.Score - mean
		variance += d * d
	}
	variance /= float64(len(docs))

	relative := 1.0
	if mean > 0 {
		relative = variance / (mean * mean)
	}
	c := 1 - math.Min(1, relative*0.5)
	if c < 0.3 {
		c = 0.3
	}
	return c
}

// countFactor buckets how many results clear the strength threshold; even
// zero strong results keep a 0.3 floor so the factor never erases the
// others on its own.
func countFactor(docs []schema.Document) float64 {
	strong := 0
	for _, doc := range docs {
		if doc.Score > strongResultThreshold {
			strong++
		}
	}
	switch {
	case strong >= 4:
		return 1.0
	case strong >= 2:
		return 0.8
	case strong >= 1:
		return 0.6
	default:
		return 0.3
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
