package kg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
)

// PostgresStore persists a Graph in two tables, one for nodes and one for
// edges (one row per source/target pair, edge types as a JSON array). It is
// an alternative to the JSON-file persistence for deployments that already
// run Postgres.
type PostgresStore struct {
	db         *sql.DB
	nodesTable string
	edgesTable string
}

// PostgresConfig configures a PostgresStore.
type PostgresConfig struct {
	// DSN is the lib/pq connection string. Ignored when DB is set.
	DSN string
	// DB is an existing connection pool to reuse.
	DB *sql.DB
	// NodesTable defaults to "kg_nodes"; EdgesTable to "kg_edges".
	NodesTable string
	EdgesTable string
}

// NewPostgresStore opens (or adopts) a connection and returns the store.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db := cfg.DB
	if db == nil {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("kg.postgres: dsn or db is required")
		}
		var err error
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("kg.postgres: open: %w", err)
		}
	}
	nodes := cfg.NodesTable
	if nodes == "" {
		nodes = "kg_nodes"
	}
	edges := cfg.EdgesTable
	if edges == "" {
		edges = "kg_edges"
	}
	return &PostgresStore{db: db, nodesTable: nodes, edgesTable: edges}, nil
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			attrs JSONB
		)`, s.nodesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			types JSONB NOT NULL,
			PRIMARY KEY (source, target)
		)`, s.edgesTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("kg.postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// SaveGraph replaces the stored graph with g inside one transaction.
func (s *PostgresStore) SaveGraph(ctx context.Context, g *Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kg.postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.edgesTable)); err != nil {
		return fmt.Errorf("kg.postgres: clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.nodesTable)); err != nil {
		return fmt.Errorf("kg.postgres: clear nodes: %w", err)
	}

	insertNode := fmt.Sprintf("INSERT INTO %s (id, type, attrs) VALUES ($1, $2, $3)", s.nodesTable)
	for _, n := range g.Nodes() {
		attrs, err := json.Marshal(n.Attrs)
		if err != nil {
			return fmt.Errorf("kg.postgres: marshal attrs for %s: %w", n.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insertNode, n.ID, n.Type, attrs); err != nil {
			return fmt.Errorf("kg.postgres: insert node %s: %w", n.ID, err)
		}
	}

	insertEdge := fmt.Sprintf("INSERT INTO %s (source, target, types) VALUES ($1, $2, $3)", s.edgesTable)
	for _, e := range g.Edges() {
		types, err := json.Marshal(e.Types)
		if err != nil {
			return fmt.Errorf("kg.postgres: marshal edge types: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertEdge, e.Source, e.Target, types); err != nil {
			return fmt.Errorf("kg.postgres: insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kg.postgres: commit: %w", err)
	}
	return nil
}

// LoadGraph reads the stored graph and ensures reverse edges, mirroring the
// JSON loader's contract.
func (s *PostgresStore) LoadGraph(ctx context.Context) (*Graph, error) {
	g := New()

	nodeRows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, type, attrs FROM %s", s.nodesTable))
	if err != nil {
		return nil, fmt.Errorf("kg.postgres: query nodes: %w", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var (
			id, typ string
			attrs   []byte
		)
		if err := nodeRows.Scan(&id, &typ, &attrs); err != nil {
			return nil, fmt.Errorf("kg.postgres: scan node: %w", err)
		}
		node := Node{ID: id, Type: typ}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &node.Attrs); err != nil {
				return nil, fmt.Errorf("kg.postgres: unmarshal attrs for %s: %w", id, err)
			}
		}
		g.AddNode(node)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("kg.postgres: nodes: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT source, target, types FROM %s", s.edgesTable))
	if err != nil {
		return nil, fmt.Errorf("kg.postgres: query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var (
			source, target string
			rawTypes       []byte
		)
		if err := edgeRows.Scan(&source, &target, &rawTypes); err != nil {
			return nil, fmt.Errorf("kg.postgres: scan edge: %w", err)
		}
		var types []string
		if err := json.Unmarshal(rawTypes, &types); err != nil {
			return nil, fmt.Errorf("kg.postgres: unmarshal edge types: %w", err)
		}
		for _, t := range types {
			g.AddEdge(source, target, EdgeType(t))
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("kg.postgres: edges: %w", err)
	}

	g.EnsureReverseEdges()
	return g, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
