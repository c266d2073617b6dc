// Package loader reads source documents off disk and normalizes them into
// schema.Document values, via a provider registry (text, markdown, csv,
// json, plus out-of-tree connectors) and a composable ingestion pipeline.
package loader

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/schema"
)

// Loader reads the source at path and returns the documents it contains.
type Loader interface {
	Load(ctx context.Context, path string) ([]schema.Document, error)
}

// Factory constructs a Loader from a provider configuration.
type Factory func(cfg config.ProviderConfig) (Loader, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named provider factory to the registry. It is intended to
// be called from provider packages' init functions.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// List returns the names of all registered providers, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a Loader using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (Loader, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loader: unknown provider %q", name)
	}
	return factory(cfg)
}

func init() {
	Register("text", func(config.ProviderConfig) (Loader, error) { return NewTextLoader(), nil })
	Register("markdown", func(config.ProviderConfig) (Loader, error) { return NewMarkdownLoader(), nil })
	Register("json", func(config.ProviderConfig) (Loader, error) { return NewJSONLoader(), nil })
	Register("csv", func(config.ProviderConfig) (Loader, error) { return NewCSVLoader(), nil })
}

// TextLoader loads a file's entire contents as a single Document.
type TextLoader struct{}

// NewTextLoader constructs a TextLoader.
func NewTextLoader() *TextLoader { return &TextLoader{} }

// Load implements Loader.
func (l *TextLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read text file: %w", err)
	}
	return []schema.Document{{
		ID:      path,
		Content: string(data),
		Metadata: map[string]any{
			"format": "text",
			"name":   filepath.Base(path),
		},
	}}, nil
}

// MarkdownLoader loads a Markdown file's entire contents as a single
// Document, preserving its raw text (heading structure is handled by a
// downstream splitter, not here).
type MarkdownLoader struct{}

// NewMarkdownLoader constructs a MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader { return &MarkdownLoader{} }

// Load implements Loader.
func (l *MarkdownLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read markdown file: %w", err)
	}
	return []schema.Document{{
		ID:      path,
		Content: string(data),
		Metadata: map[string]any{
			"format": "markdown",
			"name":   filepath.Base(path),
		},
	}}, nil
}

// JSONOption configures a JSONLoader.
type JSONOption func(*JSONLoader)

// WithContentKey sets the object key whose value becomes a Document's
// Content. Defaults to "content".
func WithContentKey(key string) JSONOption {
	return func(l *JSONLoader) { l.contentKey = key }
}

// WithJQPath sets a dotted path (e.g. "data.items") to descend into before
// interpreting the JSON as a document or array of documents.
func WithJQPath(path string) JSONOption {
	return func(l *JSONLoader) { l.jqPath = path }
}

// JSONLoader parses a JSON file holding either a single object or an array
// of objects into one Document per object.
type JSONLoader struct {
	contentKey string
	jqPath     string
}

// NewJSONLoader constructs a JSONLoader.
func NewJSONLoader(opts ...JSONOption) *JSONLoader {
	l := &JSONLoader{contentKey: "content"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements Loader.
func (l *JSONLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read json file: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loader: parse json: %w", err)
	}

	if l.jqPath != "" {
		raw, err = jqNavigate(raw, l.jqPath)
		if err != nil {
			return nil, fmt.Errorf("loader: jq path %q: %w", l.jqPath, err)
		}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	default:
		items = []any{v}
	}

	docs := make([]schema.Document, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		content := ""
		if obj != nil {
			if v, ok := obj[l.contentKey]; ok {
				content = fmt.Sprintf("%v", v)
			}
		}
		id := fmt.Sprintf("%s#%d", path, i)
		if obj != nil {
			if v, ok := obj["id"]; ok {
				id = fmt.Sprintf("%v", v)
			}
		}
		meta := map[string]any{"format": "json", "name": filepath.Base(path)}
		for k, v := range obj {
			meta[k] = v
		}
		docs = append(docs, schema.Document{ID: id, Content: content, Metadata: meta})
	}
	return docs, nil
}

// jqNavigate descends into v following a dotted key path.
func jqNavigate(v any, path string) (any, error) {
	for _, key := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot descend into non-object at %q", key)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("key %q not found", key)
		}
		v = next
	}
	return v, nil
}

// CSVOption configures a CSVLoader.
type CSVOption func(*CSVLoader)

// WithContentColumns restricts which columns (comma-separated header names)
// are rendered into a row's Content, as "name: value" lines in header order.
// All columns are always attached to Metadata regardless of this option.
func WithContentColumns(columns string) CSVOption {
	return func(l *CSVLoader) {
		for _, c := range strings.Split(columns, ",") {
			l.contentColumns = append(l.contentColumns, strings.TrimSpace(c))
		}
	}
}

// CSVLoader parses a CSV file into one Document per data row.
type CSVLoader struct {
	contentColumns []string
}

// NewCSVLoader constructs a CSVLoader.
func NewCSVLoader(opts ...CSVOption) *CSVLoader {
	l := &CSVLoader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements Loader.
func (l *CSVLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open csv file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]

	docs := make([]schema.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		meta := map[string]any{"format": "csv", "name": filepath.Base(path), "row": i}
		for c, col := range header {
			if c < len(row) {
				meta[col] = row[c]
			}
		}

		columns := l.contentColumns
		if len(columns) == 0 {
			columns = header
		}
		var lines []string
		for _, col := range columns {
			if v, ok := meta[col].(string); ok {
				lines = append(lines, fmt.Sprintf("%s: %s", col, v))
			}
		}

		docs = append(docs, schema.Document{
			ID:       fmt.Sprintf("%s#%d", path, i),
			Content:  strings.Join(lines, "\n"),
			Metadata: meta,
		})
	}
	return docs, nil
}

// Transformer mutates a Document after it has been loaded, e.g. to clean
// text or attach derived metadata.
type Transformer interface {
	Transform(ctx context.Context, doc schema.Document) (schema.Document, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, doc schema.Document) (schema.Document, error)

// Transform implements Transformer.
func (f TransformerFunc) Transform(ctx context.Context, doc schema.Document) (schema.Document, error) {
	return f(ctx, doc)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLoader appends a Loader to the pipeline. Every loader runs against the
// same source path; their outputs are concatenated.
func WithLoader(l Loader) PipelineOption {
	return func(p *Pipeline) { p.loaders = append(p.loaders, l) }
}

// WithTransformer appends a Transformer, run in order over every document
// produced by every loader.
func WithTransformer(t Transformer) PipelineOption {
	return func(p *Pipeline) { p.transformers = append(p.transformers, t) }
}

// Pipeline loads a source through one or more Loaders and applies a chain
// of Transformers to the result.
type Pipeline struct {
	loaders      []Loader
	transformers []Transformer
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load runs every configured Loader against path, then every Transformer
// against each resulting Document, in order.
func (p *Pipeline) Load(ctx context.Context, path string) ([]schema.Document, error) {
	if len(p.loaders) == 0 {
		return nil, fmt.Errorf("loader: pipeline has no loaders configured")
	}

	var docs []schema.Document
	for _, l := range p.loaders {
		loaded, err := l.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	for _, t := range p.transformers {
		for i, doc := range docs {
			transformed, err := t.Transform(ctx, doc)
			if err != nil {
				return nil, fmt.Errorf("loader: transform %q: %w", doc.ID, err)
			}
			docs[i] = transformed
		}
	}
	return docs, nil
}
