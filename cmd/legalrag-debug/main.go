// Command legalrag-debug serves a local introspection endpoint for the
// retrieval engine: knowledge-graph statistics, registered providers, and
// health checks. It is a development tool, not the serving API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/internal/httputil"
	"github.com/peraturan-ai/legalrag/kg"
	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/o11y"
	"github.com/peraturan-ai/legalrag/rag/embedding"
	"github.com/peraturan-ai/legalrag/rag/reranker"
	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/vectorstore"

	_ "github.com/peraturan-ai/legalrag/llm/providers/anthropic"
	_ "github.com/peraturan-ai/legalrag/llm/providers/bedrock"
	_ "github.com/peraturan-ai/legalrag/llm/providers/groq"
	_ "github.com/peraturan-ai/legalrag/llm/providers/mistral"
	_ "github.com/peraturan-ai/legalrag/llm/providers/ollama"
	_ "github.com/peraturan-ai/legalrag/llm/providers/openai"
	_ "github.com/peraturan-ai/legalrag/rag/embedding/providers/inmemory"
	_ "github.com/peraturan-ai/legalrag/rag/embedding/providers/jina"
	_ "github.com/peraturan-ai/legalrag/rag/embedding/providers/nvidia"
	_ "github.com/peraturan-ai/legalrag/rag/embedding/providers/sentence_transformers"
	_ "github.com/peraturan-ai/legalrag/rag/vectorstore/providers/inmemory"
	_ "github.com/peraturan-ai/legalrag/rag/vectorstore/providers/qdrant"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "listen address")
	graphPath := flag.String("kg", "", "path to a knowledge-graph JSON file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	engine, err := config.LoadEngineConfig(".")
	if err != nil {
		logger.Error("load engine config", "error", err)
		os.Exit(1)
	}

	var graph *kg.Graph
	if *graphPath != "" {
		graph, err = kg.Load(*graphPath)
		if err != nil {
			logger.Error("load knowledge graph", "path", *graphPath, "error", err)
			os.Exit(1)
		}
		logger.Info("knowledge graph loaded", "nodes", graph.Stats().TotalNodes, "edges", graph.Stats().TotalEdges)
	}

	health := o11y.NewHealthRegistry()
	health.Register("kg", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		result := o11y.HealthResult{Component: "kg", Status: o11y.Healthy, Timestamp: time.Now()}
		if graph == nil {
			result.Status = o11y.Degraded
			result.Message = "no graph loaded"
		}
		return result
	}))

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, health.CheckAll(r.Context()))
	}).Methods(http.MethodGet)
	router.HandleFunc("/debug/engine", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, engine)
	}).Methods(http.MethodGet)
	router.HandleFunc("/debug/providers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string][]string{
			"llm":          llm.List(),
			"embedding":    embedding.List(),
			"vectorstore":  vectorstore.List(),
			"retriever":    retriever.List(),
			"reranker":     reranker.List(),
		})
	}).Methods(http.MethodGet)
	router.HandleFunc("/debug/kg/stats", func(w http.ResponseWriter, r *http.Request) {
		if graph == nil {
			http.Error(w, "no knowledge graph loaded", http.StatusNotFound)
			return
		}
		writeJSON(w, graph.Stats())
	}).Methods(http.MethodGet)
	router.HandleFunc("/debug/kg/amendments/{id}", func(w http.ResponseWriter, r *http.Request) {
		if graph == nil {
			http.Error(w, "no knowledge graph loaded", http.StatusNotFound)
			return
		}
		id := kg.NormalizeRegulationIDFromCanonical(mux.Vars(r)["id"])
		writeJSON(w, graph.Amendments(id))
	}).Methods(http.MethodGet)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("debug server listening", "addr", *addr)
	var lifecycle httputil.ServerLifecycle
	if err := lifecycle.Serve(ctx, *addr, router, 5*time.Second, 10*time.Second, time.Minute, "legalrag-debug"); err != nil && err != context.Canceled {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
