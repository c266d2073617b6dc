package kg

import (
	"strings"

	"github.com/peraturan-ai/legalrag/rag/legalref"
)

// RegulationMeta describes one regulation to register in the graph before
// its citations/amendments are ingested.
type RegulationMeta struct {
	Jenis  string
	Nomor  string
	Tahun  string
	Title  string
	About  string
	Status string
}

// nodeType maps a jenis abbreviation to the graph's regulation node type.
var nodeTypeByJenis = map[string]string{
	"UU":      "law",
	"PP":      "government_regulation",
	"Perpres": "presidential_regulation",
	"Permen":  "ministerial_regulation",
}

func (m RegulationMeta) id() string { return NormalizeRegulationID(m.Jenis, m.Nomor, m.Tahun) }

// AddRegulation registers a regulation node, stubbing in a generic node
// type for jenis values outside the four modeled regulation levels (e.g.
// Perda, Perppu) so boost traversal still treats them as regulation-level.
func (g *Graph) AddRegulation(m RegulationMeta) string {
	nt, ok := nodeTypeByJenis[m.Jenis]
	if !ok {
		nt = "regulation_" + strings.ToLower(m.Jenis)
		g.mu.Lock()
		g.extraRegulationTypes[nt] = true
		g.mu.Unlock()
	}
	id := m.id()
	g.AddNode(Node{
		ID:   id,
		Type: nt,
		Attrs: map[string]any{
			"jenis": m.Jenis, "nomor": m.Nomor, "tahun": m.Tahun,
			"title": m.Title, "about": m.About, "status": m.Status,
		},
	})
	return id
}

// ensureStub adds a bare placeholder node for a regulation referenced by a
// citation/amendment but not itself ingested, so the edge has a valid
// target.
func (g *Graph) ensureStub(canonicalID string) {
	g.mu.RLock()
	_, ok := g.nodes[canonicalID]
	g.mu.RUnlock()
	if ok {
		return
	}
	parts := strings.SplitN(canonicalID, "_", 3)
	jenis := "UU"
	if len(parts) > 0 {
		jenis = strings.ToUpper(parts[0])
	}
	nt, ok := nodeTypeByJenis[jenis]
	if !ok {
		nt = "law"
	}
	g.AddNode(Node{ID: canonicalID, Type: nt, Attrs: map[string]any{"stub": true}})
}

// IngestCitations extracts legal citations and amendment relations from a
// regulation's body text and title, and adds the corresponding REFERENCES
// and AMENDS/REVOKES/REPLACES/SUPPLEMENTS edges from sourceID.
func (g *Graph) IngestCitations(sourceID, title, body string) {
	amendmentEdgeType := map[legalref.AmendmentType]EdgeType{
		legalref.AmendmentAmends:      EdgeAmends,
		legalref.AmendmentRevokes:     EdgeRevokes,
		legalref.AmendmentReplaces:    EdgeReplaces,
		legalref.AmendmentSupplements: EdgeSupplements,
	}

	for _, rel := range legalref.DetectAmendments(body, sourceID) {
		target := NormalizeRegulationIDFromCanonical(rel.TargetRegulation)
		g.ensureStub(target)
		g.AddEdge(sourceID, target, amendmentEdgeType[rel.Type])
	}
	for _, rel := range legalref.DetectAmendmentsFromTitle(title, sourceID) {
		target := NormalizeRegulationIDFromCanonical(rel.TargetRegulation)
		g.ensureStub(target)
		g.AddEdge(sourceID, target, amendmentEdgeType[rel.Type])
	}
	for _, c := range legalref.ExtractCitations(body) {
		target := NormalizeRegulationIDFromCanonical(c.Canonical)
		if target == sourceID {
			continue
		}
		g.ensureStub(target)
		g.AddEdge(sourceID, target, EdgeReferences)
	}
}
