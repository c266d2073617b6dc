package retriever

import (
	"context"
	"fmt"

	"github.com/peraturan-ai/legalrag/schema"
)

// parentCitationKey is the metadata field linking a child chunk to the
// article-level chunk it was split from.
const parentCitationKey = "parent_citation_id"

// ParentStore resolves a parent citation id to the parent's full text. It is
// preloaded at startup from the same corpus scroll that builds the BM25
// index and is read-only afterwards.
type ParentStore interface {
	ParentText(ctx context.Context, parentID string) (string, bool)
}

// MapParentStore is an in-memory ParentStore backed by a plain map from
// parent citation id to full parent text.
type MapParentStore map[string]string

// ParentText implements ParentStore.
func (s MapParentStore) ParentText(_ context.Context, parentID string) (string, bool) {
	text, ok := s[parentID]
	return text, ok
}

// NewParentStoreFromDocuments builds a MapParentStore from article-level
// documents, keyed by each document's id.
func NewParentStoreFromDocuments(docs []schema.Document) MapParentStore {
	store := make(MapParentStore, len(docs))
	for _, doc := range docs {
		if doc.ID == "" || doc.Content == "" {
			continue
		}
		store[doc.ID] = doc.Content
	}
	return store
}

// ParentChildRetriever retrieves fine-grained child chunks from an inner
// retriever, then swaps each child's text for its parent article's full
// text, deduplicating by parent so one article appears at most once. The
// child's id, citation metadata, and score are kept; only the text widens.
type ParentChildRetriever struct {
	inner   Retriever
	parents ParentStore
	hooks   Hooks
}

// ParentChildOption configures a ParentChildRetriever at construction time.
type ParentChildOption func(*ParentChildRetriever)

// WithParentChildHooks attaches lifecycle hooks to a ParentChildRetriever.
func WithParentChildHooks(hooks Hooks) ParentChildOption {
	return func(r *ParentChildRetriever) { r.hooks = hooks }
}

// NewParentChildRetriever constructs a ParentChildRetriever.
func NewParentChildRetriever(inner Retriever, parents ParentStore, opts ...ParentChildOption) *ParentChildRetriever {
	r := &ParentChildRetriever{inner: inner, parents: parents}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements Retriever. It over-fetches 2x the requested k so that
// children collapsing onto the same parent still leave k distinct parents,
// then expands each child in rank order. If no child resolves to a parent,
// the top-k children are returned unchanged.
func (r *ParentChildRetriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]schema.Document, error) {
	if r.hooks.BeforeRetrieve != nil {
		if err := r.hooks.BeforeRetrieve(ctx, query); err != nil {
			return nil, err
		}
	}

	cfg := ApplyOptions(opts...)
	childOpts := append([]Option{}, opts...)
	childOpts = append(childOpts, WithTopK(cfg.TopK*2))

	children, err := r.inner.Retrieve(ctx, query, childOpts...)
	if err != nil {
		err = fmt.Errorf("parent-child inner retrieve: %w", err)
		if r.hooks.AfterRetrieve != nil {
			r.hooks.AfterRetrieve(ctx, nil, err)
		}
		return nil, err
	}

	result := r.expand(ctx, children, cfg.TopK)

	if r.hooks.AfterRetrieve != nil {
		r.hooks.AfterRetrieve(ctx, result, nil)
	}
	return result, nil
}

func (r *ParentChildRetriever) expand(ctx context.Context, children []schema.Document, topK int) []schema.Document {
	return ExpandToParents(ctx, children, r.parents, topK)
}

// ExpandToParents swaps each child document's text for its parent article's
// full text, in rank order, deduplicating by parent and stopping at topK
// parents. Children whose parent does not resolve are skipped; if none
// resolves, the top-k children are returned unchanged.
func ExpandToParents(ctx context.Context, children []schema.Document, parents ParentStore, topK int) []schema.Document {
	if parents == nil {
		return truncate(children, topK)
	}

	seen := make(map[string]bool)
	var expanded []schema.Document
	for _, child := range children {
		if topK > 0 && len(expanded) >= topK {
			break
		}
		parentID, _ := child.Metadata[parentCitationKey].(string)
		if parentID == "" || seen[parentID] {
			continue
		}
		text, ok := parents.ParentText(ctx, parentID)
		if !ok {
			continue
		}
		seen[parentID] = true
		doc := child
		doc.Content = text
		expanded = append(expanded, doc)
	}

	if len(expanded) == 0 {
		return truncate(children, topK)
	}
	return expanded
}
