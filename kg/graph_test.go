package kg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peraturan-ai/legalrag/core"
	"github.com/peraturan-ai/legalrag/kg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "uu_13_2003", Type: "law"})
	g.AddNode(kg.Node{ID: "uu_11_2020", Type: "law"})
	g.AddEdge("uu_11_2020", "uu_13_2003", kg.EdgeAmends)

	stats := g.Stats()
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 1, stats.TotalEdges)
	assert.Equal(t, 1, stats.EdgesByType["AMENDS"])
}

func TestGraph_EnsureReverseEdges(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "a", Type: "law"})
	g.AddNode(kg.Node{ID: "b", Type: "law"})
	g.AddEdge("a", "b", kg.EdgeAmends)

	added := g.EnsureReverseEdges()
	assert.Equal(t, 1, added)

	related, err := g.Expand(context.Background(), []string{"b"}, 1, time.Second)
	require.NoError(t, err)
	assert.Contains(t, related, "a")

	// Running again is idempotent.
	added2 := g.EnsureReverseEdges()
	assert.Equal(t, 0, added2)
}

func TestGraph_ExpandOneHop(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "uu_11_2020", Type: "law"})
	g.AddNode(kg.Node{ID: "uu_13_2003", Type: "law"})
	g.AddNode(kg.Node{ID: "pp_5_2021", Type: "government_regulation"})
	g.AddEdge("uu_11_2020", "uu_13_2003", kg.EdgeAmends)
	g.AddEdge("pp_5_2021", "uu_11_2020", kg.EdgeImplements)

	related, err := g.Expand(context.Background(), []string{"uu_11_2020"}, 1, time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"uu_13_2003", "pp_5_2021"}, related)
}

func TestGraph_ExpandExcludesNonRegulationNodes(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "uu_11_2020", Type: "law"})
	g.AddNode(kg.Node{ID: "chapter_1", Type: "chapter"})
	g.AddEdge("uu_11_2020", "chapter_1", kg.EdgeContains)

	related, err := g.Expand(context.Background(), []string{"uu_11_2020"}, 1, time.Second)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestGraph_ExpandDeadline(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "a", Type: "law"})
	related, err := g.Expand(context.Background(), []string{"a"}, 1, 0)
	assert.Empty(t, related)
	if err != nil {
		var kgErr *core.Error
		require.True(t, errors.As(err, &kgErr))
		assert.Equal(t, core.ErrKGDeadline, kgErr.Code)
	}
}

func TestNormalizeRegulationID(t *testing.T) {
	assert.Equal(t, "uu_11_2020", kg.NormalizeRegulationID("UU", "11", "2020"))
	assert.Equal(t, "pp_5_2021", kg.NormalizeRegulationIDFromCanonical("PP-5-2021"))
}

func TestIngestCitations(t *testing.T) {
	g := kg.New()
	src := g.AddRegulation(kg.RegulationMeta{Jenis: "UU", Nomor: "11", Tahun: "2020", Title: "Cipta Kerja"})
	g.IngestCitations(src, "", "Undang-Undang ini mengubah Undang-Undang Nomor 13 Tahun 2003 tentang ketenagakerjaan.")

	related, err := g.Expand(context.Background(), []string{src}, 1, time.Second)
	require.NoError(t, err)
	assert.Contains(t, related, "uu_13_2003")
}

func TestSaveAndLoad(t *testing.T) {
	g := kg.New()
	g.AddNode(kg.Node{ID: "uu_11_2020", Type: "law", Attrs: map[string]any{"title": "Cipta Kerja"}})
	g.AddNode(kg.Node{ID: "uu_13_2003", Type: "law"})
	g.AddEdge("uu_11_2020", "uu_13_2003", kg.EdgeAmends)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.Save(path))

	loaded, err := kg.Load(path)
	require.NoError(t, err)
	stats := loaded.Stats()
	assert.Equal(t, 2, stats.TotalNodes)
	// Load materializes implied reverse edges.
	assert.Equal(t, 2, stats.TotalEdges)
	assert.Equal(t, 1, stats.EdgesByType["AMENDS"])
	assert.Equal(t, 1, stats.EdgesByType["AMENDED_BY"])

	_, err = os.Stat(path)
	require.NoError(t, err)
}
