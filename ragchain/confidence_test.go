package ragchain_test

import (
	"testing"

	"github.com/peraturan-ai/legalrag/ragchain"
	"github.com/peraturan-ai/legalrag/schema"
	"github.com/stretchr/testify/assert"
)

func TestConfidenceLabel_Thresholds(t *testing.T) {
	assert.Equal(t, ragchain.ConfidenceTinggi, ragchain.ConfidenceLabel(0.65), "exact threshold maps to the higher label")
	assert.Equal(t, ragchain.ConfidenceTinggi, ragchain.ConfidenceLabel(0.9))
	assert.Equal(t, ragchain.ConfidenceSedang, ragchain.ConfidenceLabel(0.40))
	assert.Equal(t, ragchain.ConfidenceSedang, ragchain.ConfidenceLabel(0.64))
	assert.Equal(t, ragchain.ConfidenceRendah, ragchain.ConfidenceLabel(0.39))
	assert.Equal(t, ragchain.ConfidenceRendah, ragchain.ConfidenceLabel(0))
}

func TestConfidenceLabel_Monotone(t *testing.T) {
	rank := map[string]int{
		ragchain.ConfidenceRendah: 0,
		ragchain.ConfidenceSedang: 1,
		ragchain.ConfidenceTinggi: 2,
	}
	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		r := rank[ragchain.ConfidenceLabel(score)]
		assert.GreaterOrEqual(t, r, prev, "label must not decrease as score rises")
		prev = r
	}
}

func TestComputeConfidence_Empty(t *testing.T) {
	cs := ragchain.ComputeConfidence(nil)
	assert.Zero(t, cs.Score)
	assert.Equal(t, ragchain.ConfidenceNone, cs.Label)
}

func TestComputeConfidence_StrongRetrievalIsHigh(t *testing.T) {
	cs := ragchain.ComputeConfidence(strongDocs())
	assert.Equal(t, ragchain.ConfidenceTinggi, cs.Label)
	assert.InDelta(t, 0.032, cs.TopScore, 1e-9)
	assert.Greater(t, cs.Score, 0.65)
	assert.LessOrEqual(t, cs.Score, 1.0)
}

func TestComputeConfidence_IrrelevantRetrievalBelowGate(t *testing.T) {
	cs := ragchain.ComputeConfidence(weakDocs())
	assert.Less(t, cs.Score, 0.15)
	assert.Equal(t, ragchain.ConfidenceRendah, cs.Label)
}

func TestComputeConfidence_AuthorityMatters(t *testing.T) {
	mk := func(jenis string) []schema.Document {
		return []schema.Document{
			{ID: "a", Metadata: map[string]any{"jenis_dokumen": jenis}, Score: 0.02},
			{ID: "b", Metadata: map[string]any{"jenis_dokumen": jenis}, Score: 0.02},
		}
	}
	uu := ragchain.ComputeConfidence(mk("UU"))
	perda := ragchain.ComputeConfidence(mk("Perda"))
	assert.Greater(t, uu.Score, perda.Score)
}

func TestComputeConfidence_ConsistencyMatters(t *testing.T) {
	// Same top score, same average, same strong-result count: only the
	// spread differs, so only the consistency factor separates the two.
	tight := ragchain.ComputeConfidence([]schema.Document{
		{ID: "a", Score: 0.030}, {ID: "b", Score: 0.020}, {ID: "c", Score: 0.010},
	})
	spread := ragchain.ComputeConfidence([]schema.Document{
		{ID: "a", Score: 0.030}, {ID: "b", Score: 0.025}, {ID: "c", Score: 0.005},
	})
	assert.Greater(t, tight.Score, spread.Score)
}

func TestComputeConfidence_SingleResultModerateConsistency(t *testing.T) {
	single := ragchain.ComputeConfidence([]schema.Document{
		{ID: "a", Metadata: map[string]any{"jenis_dokumen": "UU"}, Score: 0.032},
	})
	assert.Equal(t, ragchain.ConfidenceTinggi, single.Label)
	assert.Less(t, single.Score, 0.85)
}

func TestComputeConfidence_CountBuckets(t *testing.T) {
	mk := func(n int) []schema.Document {
		docs := make([]schema.Document, n)
		for i := range docs {
			docs[i] = schema.Document{ID: string(rune('a' + i)), Score: 0.02}
		}
		return docs
	}
	// More results above the strength threshold never lowers the score.
	prev := ragchain.ComputeConfidence(mk(1)).Score
	for _, n := range []int{2, 4, 5} {
		cur := ragchain.ComputeConfidence(mk(n)).Score
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
