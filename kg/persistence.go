package kg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type jsonNode struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type jsonEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Types  []string `json:"types"`
}

type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

// Save serializes the graph to a JSON file, creating parent directories as
// needed.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := jsonGraph{}
	for _, n := range g.nodes {
		doc.Nodes = append(doc.Nodes, jsonNode{ID: n.ID, Type: n.Type, Attrs: n.Attrs})
	}
	for source, bucket := range g.out {
		for target, e := range bucket {
			var types []string
			for et := range e.types {
				types = append(types, string(et))
			}
			doc.Edges = append(doc.Edges, jsonEdge{Source: source, Target: target, Types: types})
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("kg.save: %w", err)
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("kg.save: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("kg.save: write: %w", err)
	}
	return nil
}

// Load deserializes a graph previously written by Save, avoiding
// re-ingestion at startup.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kg.load: %w", err)
	}
	var doc jsonGraph
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("kg.load: unmarshal: %w", err)
	}

	g := New()
	for _, n := range doc.Nodes {
		g.AddNode(Node{ID: n.ID, Type: n.Type, Attrs: n.Attrs})
	}
	for _, e := range doc.Edges {
		for _, t := range e.Types {
			g.AddEdge(e.Source, e.Target, EdgeType(t))
		}
	}
	// Save writes only the edges the graph holds, which need not include
	// reverse edges; hand-built or migrated files may lack them as well.
	g.EnsureReverseEdges()
	return g, nil
}
