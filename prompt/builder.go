package prompt

import (
	"fmt"
	"strings"

	"github.com/peraturan-ai/legalrag/schema"
)

// Builder assembles a message list in a fixed, cache-friendly order:
// system prompt, tool definitions, static context, cache breakpoint,
// dynamic context, user input. Stable prefixes come first so providers with
// prompt caching get maximal prefix reuse.
type Builder struct {
	systemPrompt   string
	tools          []schema.ToolDefinition
	staticContext  []string
	cacheBreak     bool
	dynamicContext []schema.Message
	userInput      schema.Message
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithSystemPrompt sets the leading system prompt.
func WithSystemPrompt(prompt string) BuilderOption {
	return func(b *Builder) { b.systemPrompt = prompt }
}

// WithToolDefinitions advertises the given tools in a system message.
func WithToolDefinitions(tools []schema.ToolDefinition) BuilderOption {
	return func(b *Builder) { b.tools = tools }
}

// WithStaticContext adds reference documents that change rarely, one system
// message per document. Empty strings are skipped.
func WithStaticContext(docs []string) BuilderOption {
	return func(b *Builder) { b.staticContext = docs }
}

// WithCacheBreakpoint inserts a marker message carrying cache_breakpoint
// metadata, separating the stable prefix from per-request content.
func WithCacheBreakpoint() BuilderOption {
	return func(b *Builder) { b.cacheBreak = true }
}

// WithDynamicContext appends per-request conversation context.
func WithDynamicContext(msgs []schema.Message) BuilderOption {
	return func(b *Builder) { b.dynamicContext = msgs }
}

// WithUserInput sets the final user message.
func WithUserInput(msg schema.Message) BuilderOption {
	return func(b *Builder) { b.userInput = msg }
}

// NewBuilder constructs a Builder from opts.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the ordered message list. Unset slots are omitted.
func (b *Builder) Build() []schema.Message {
	var msgs []schema.Message

	if b.systemPrompt != "" {
		msgs = append(msgs, schema.NewSystemMessage(b.systemPrompt))
	}

	if len(b.tools) > 0 {
		var sb strings.Builder
		sb.WriteString("Available tools:\n")
		for _, tool := range b.tools {
			fmt.Fprintf(&sb, "- %s: %s\n", tool.Name, tool.Description)
		}
		msgs = append(msgs, schema.NewSystemMessage(sb.String()))
	}

	for _, doc := range b.staticContext {
		if doc == "" {
			continue
		}
		msgs = append(msgs, schema.NewSystemMessage(doc))
	}

	if b.cacheBreak {
		marker := schema.NewSystemMessage("")
		marker.Metadata = map[string]any{"cache_breakpoint": true}
		msgs = append(msgs, marker)
	}

	msgs = append(msgs, b.dynamicContext...)

	if b.userInput != nil {
		msgs = append(msgs, b.userInput)
	}

	return msgs
}
