// Package kg is an in-memory directed graph of Indonesian regulations and
// their relationships (implements, amends, references, supersedes), used to
// boost hybrid-retriever scores for documents within one hop of a
// top-ranked candidate's regulation.
package kg

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/peraturan-ai/legalrag/core"
)

// EdgeType identifies the kind of relationship a directed edge represents.
type EdgeType string

const (
	EdgeContains    EdgeType = "CONTAINS"
	EdgeImplements  EdgeType = "IMPLEMENTS"
	EdgeAmends      EdgeType = "AMENDS"
	EdgeReferences  EdgeType = "REFERENCES"
	EdgeSupersedes  EdgeType = "SUPERSEDES"
	EdgeRevokes     EdgeType = "REVOKES"
	EdgeReplaces    EdgeType = "REPLACES"
	EdgeSupplements EdgeType = "SUPPLEMENTS"

	edgeImplementedBy  EdgeType = "IMPLEMENTED_BY"
	edgeAmendedBy      EdgeType = "AMENDED_BY"
	edgeSupersededBy   EdgeType = "SUPERSEDED_BY"
	edgeRevokedBy      EdgeType = "REVOKED_BY"
	edgeReplacedBy     EdgeType = "REPLACED_BY"
	edgeSupplementedBy EdgeType = "SUPPLEMENTED_BY"
	edgeReferencedBy   EdgeType = "REFERENCED_BY"
)

// reverseOf maps a directional edge type to the type of its implied reverse
// edge. CONTAINS has no reverse: hierarchy is one-directional by design.
var reverseOf = map[EdgeType]EdgeType{
	EdgeImplements:  edgeImplementedBy,
	EdgeAmends:      edgeAmendedBy,
	EdgeSupersedes:  edgeSupersededBy,
	EdgeRevokes:     edgeRevokedBy,
	EdgeReplaces:    edgeReplacedBy,
	EdgeSupplements: edgeSupplementedBy,
	EdgeReferences:  edgeReferencedBy,
}

// boostEdgeTypes is the set of relations the hybrid retriever's KG boost
// traverses, in both directions.
var boostEdgeTypes = map[EdgeType]bool{
	EdgeImplements: true, edgeImplementedBy: true,
	EdgeAmends: true, edgeAmendedBy: true,
	EdgeReferences: true, edgeReferencedBy: true,
	EdgeSupersedes: true, edgeSupersededBy: true,
}

// Node is a regulation, chapter, or article in the graph. Attrs carries
// type-specific fields (title, about, status, number, year, ...) so the
// graph stays agnostic to the node-type hierarchy.
type Node struct {
	ID    string
	Type  string
	Attrs map[string]any
}

type edge struct {
	target string
	types  map[EdgeType]bool
}

// Graph is a thread-safe in-memory directed multigraph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
	out   map[string]map[string]*edge
	in    map[string]map[string]*edge
	// extraRegulationTypes holds node-type strings treated as
	// regulation-level for KG-boost purposes beyond the four built-in ones
	// (e.g. a jenis with no modeled node type, stubbed as "law" already
	// covers this in practice, but the set stays extensible).
	extraRegulationTypes map[string]bool
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:                make(map[string]Node),
		out:                  make(map[string]map[string]*edge),
		in:                   make(map[string]map[string]*edge),
		extraRegulationTypes: make(map[string]bool),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

// AddEdge adds a typed directed edge from source to target, merging with
// any existing edge between the same pair (multiple relation types can
// coexist on one node pair, e.g. IMPLEMENTS and REFERENCES).
func (g *Graph) AddEdge(source, target string, et EdgeType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(g.out, source, target, et)
	g.addEdgeLocked(g.in, target, source, et)
}

func (g *Graph) addEdgeLocked(index map[string]map[string]*edge, from, to string, et EdgeType) {
	bucket, ok := index[from]
	if !ok {
		bucket = make(map[string]*edge)
		index[from] = bucket
	}
	e, ok := bucket[to]
	if !ok {
		e = &edge{target: to, types: make(map[EdgeType]bool)}
		bucket[to] = e
	}
	e.types[et] = true
}

// EnsureReverseEdges materializes the implied reverse edge for every
// directional relation present in the graph (AMENDS -> AMENDED_BY, and so
// on). Returns the number of reverse edges added that did not already
// exist.
func (g *Graph) EnsureReverseEdges() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	type pair struct {
		source, target string
		et              EdgeType
	}
	var toAdd []pair
	for source, bucket := range g.out {
		for target, e := range bucket {
			for et := range e.types {
				if rev, ok := reverseOf[et]; ok {
					toAdd = append(toAdd, pair{target, source, rev})
				}
			}
		}
	}

	added := 0
	for _, p := range toAdd {
		if bucket, ok := g.out[p.source]; ok {
			if e, ok := bucket[p.target]; ok && e.types[p.et] {
				continue
			}
		}
		g.addEdgeLocked(g.out, p.source, p.target, p.et)
		g.addEdgeLocked(g.in, p.target, p.source, p.et)
		added++
	}
	return added
}

// Expand runs a breadth-first search from start along boost-relevant edge
// types (implements/amends/references/supersedes, both directions), up to
// maxHops deep, returning the set of reached regulation node IDs (excluding
// start itself). The search stops early once deadline elapses, returning
// whatever was found so far along with core.ErrKGDeadline so the caller can
// log degraded-but-not-aborted behavior.
func (g *Graph) Expand(ctx context.Context, start []string, maxHops int, deadline time.Duration) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cutoff := time.Now().Add(deadline)
	visited := make(map[string]bool, len(start))
	type item struct {
		id  string
		hop int
	}
	queue := make([]item, 0, len(start))
	for _, id := range start {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		visited[id] = true
		queue = append(queue, item{id, 0})
	}

	var result []string
	var timedOut bool

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		if time.Now().After(cutoff) {
			timedOut = true
			break
		}

		cur := queue[0]
		queue = queue[1:]
		if cur.hop >= maxHops {
			continue
		}

		neighbors := g.neighborsLocked(cur.id)
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			node, ok := g.nodes[nb]
			if !ok || !(regulationNodeTypes[node.Type] || g.extraRegulationTypes[node.Type]) {
				continue
			}
			visited[nb] = true
			result = append(result, nb)
			queue = append(queue, item{nb, cur.hop + 1})
		}
	}

	sort.Strings(result)
	if timedOut {
		return result, core.NewError("kg.expand", core.ErrKGDeadline, "graph expansion preempted by deadline", nil)
	}
	return result, nil
}

func (g *Graph) neighborsLocked(id string) []string {
	var out []string
	for target, e := range g.out[id] {
		if hasBoostType(e.types) {
			out = append(out, target)
		}
	}
	for source, e := range g.in[id] {
		if hasBoostType(e.types) {
			out = append(out, source)
		}
	}
	return out
}

func hasBoostType(types map[EdgeType]bool) bool {
	for et := range types {
		if boostEdgeTypes[et] {
			return true
		}
	}
	return false
}

// regulationNodeTypes are the node Type values considered "regulation-level"
// for KG-boost purposes, as opposed to structural Chapter/Article nodes.
var regulationNodeTypes = map[string]bool{
	"law": true, "government_regulation": true,
	"presidential_regulation": true, "ministerial_regulation": true,
}

// Stats summarizes graph size for observability.
type Stats struct {
	TotalNodes   int
	TotalEdges   int
	NodesByType  map[string]int
	EdgesByType  map[string]int
}

// Stats returns node/edge counts grouped by type.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{NodesByType: make(map[string]int), EdgesByType: make(map[string]int)}
	s.TotalNodes = len(g.nodes)
	for _, n := range g.nodes {
		s.NodesByType[n.Type]++
	}
	for _, bucket := range g.out {
		for _, e := range bucket {
			s.TotalEdges++
			for et := range e.types {
				s.EdgesByType[string(et)]++
			}
		}
	}
	return s
}

// NormalizeRegulationID builds the canonical lowercase snake_case node ID
// for a regulation, e.g. NormalizeRegulationID("UU", "11", "2020") ==
// "uu_11_2020".
func NormalizeRegulationID(jenis, nomor, tahun string) string {
	return strings.ToLower(jenis) + "_" + strings.TrimSpace(nomor) + "_" + strings.TrimSpace(tahun)
}

// NormalizeRegulationIDFromCanonical converts a legalref-style canonical ID
// ("UU-11-2020") into the graph's node-ID convention ("uu_11_2020").
func NormalizeRegulationIDFromCanonical(canonical string) string {
	parts := strings.SplitN(canonical, "-", 3)
	if len(parts) != 3 {
		return strings.ToLower(canonical)
	}
	return NormalizeRegulationID(parts[0], parts[1], parts[2])
}

// ParseYear is a small helper for callers building Node.Attrs from parsed
// citation strings; returns 0 on a non-numeric year.
func ParseYear(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Edge is an exported snapshot of one source/target pair and every relation
// type it carries, used by the persistence layers.
type Edge struct {
	Source string
	Target string
	Types  []string
}

// Nodes returns a snapshot of all nodes, ordered by ID.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns a snapshot of all outgoing edges, ordered by source then
// target, with each pair's relation types sorted.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for source, bucket := range g.out {
		for target, e := range bucket {
			types := make([]string, 0, len(e.types))
			for et := range e.types {
				types = append(types, string(et))
			}
			sort.Strings(types)
			edges = append(edges, Edge{Source: source, Target: target, Types: types})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// AmendmentRef is one amendment relationship seen from a given regulation.
// Direction is "amends" when the regulation is the amending side and
// "amended_by" when it is the amended side.
type AmendmentRef struct {
	ID        string
	Direction string
}

// Amendments returns every regulation connected to id by an amendment
// relation, with the relation's direction relative to id.
func (g *Graph) Amendments(id string) []AmendmentRef {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var refs []AmendmentRef
	for target, e := range g.out[id] {
		if e.types[EdgeAmends] {
			refs = append(refs, AmendmentRef{ID: target, Direction: "amends"})
		}
		if e.types[edgeAmendedBy] {
			refs = append(refs, AmendmentRef{ID: target, Direction: "amended_by"})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
