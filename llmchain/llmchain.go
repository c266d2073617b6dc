// Package llmchain composes multiple chat-model providers into a single
// fallback chain. Each member is guarded by its own circuit breaker, so a
// provider that keeps failing is skipped for a cooldown period instead of
// delaying every request. Providers that cannot be constructed (missing
// credentials, unknown name) are skipped at build time with a warning; the
// chain fails construction only when no member remains.
package llmchain

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/peraturan-ai/legalrag/config"
	"github.com/peraturan-ai/legalrag/core"
	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/resilience"
	"github.com/peraturan-ai/legalrag/schema"
)

const (
	defaultFailureThreshold = 3
	defaultResetTimeout     = 60 * time.Second
)

// ProviderSpec names one chain member and its configuration. Name must be a
// provider registered with the llm package's registry.
type ProviderSpec struct {
	Name   string
	Config config.ProviderConfig
}

type member struct {
	name    string
	model   llm.ChatModel
	breaker *resilience.CircuitBreaker
}

// FallbackChain implements llm.ChatModel over an ordered list of providers.
type FallbackChain struct {
	members []member
	logger  *slog.Logger
	tools   []schema.ToolDefinition
}

// ChainOption configures a FallbackChain at construction time.
type ChainOption func(*chainConfig)

type chainConfig struct {
	failureThreshold int
	resetTimeout     time.Duration
	logger           *slog.Logger
}

// WithBreaker overrides the per-provider circuit breaker parameters.
func WithBreaker(failureThreshold int, resetTimeout time.Duration) ChainOption {
	return func(c *chainConfig) {
		c.failureThreshold = failureThreshold
		c.resetTimeout = resetTimeout
	}
}

// WithLogger sets the logger used for construction-time skips and runtime
// provider swaps.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *chainConfig) { c.logger = logger }
}

// NewFallbackChain constructs each spec via the llm registry in order,
// skipping members that fail to construct. It errors only when every spec
// is skipped.
func NewFallbackChain(specs []ProviderSpec, opts ...ChainOption) (*FallbackChain, error) {
	cfg := chainConfig{
		failureThreshold: defaultFailureThreshold,
		resetTimeout:     defaultResetTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var members []member
	for _, spec := range specs {
		model, err := llm.New(spec.Name, spec.Config)
		if err != nil {
			cfg.logger.Warn("llmchain: skipping provider", "provider", spec.Name, "error", err)
			continue
		}
		members = append(members, member{
			name:    spec.Name,
			model:   model,
			breaker: resilience.NewCircuitBreaker(cfg.failureThreshold, cfg.resetTimeout),
		})
	}
	if len(members) == 0 {
		return nil, core.NewError("llmchain.new", core.ErrProviderDown, "no usable providers in fallback chain", nil)
	}
	return &FallbackChain{members: members, logger: cfg.logger}, nil
}

// NewFallbackChainFromModels builds a chain from already-constructed models,
// mainly for tests and callers that assemble providers themselves.
func NewFallbackChainFromModels(models []llm.ChatModel, opts ...ChainOption) (*FallbackChain, error) {
	cfg := chainConfig{
		failureThreshold: defaultFailureThreshold,
		resetTimeout:     defaultResetTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(models) == 0 {
		return nil, core.NewError("llmchain.new", core.ErrProviderDown, "no usable providers in fallback chain", nil)
	}
	members := make([]member, len(models))
	for i, model := range models {
		members[i] = member{
			name:    model.ModelID(),
			model:   model,
			breaker: resilience.NewCircuitBreaker(cfg.failureThreshold, cfg.resetTimeout),
		}
	}
	return &FallbackChain{members: members, logger: cfg.logger}, nil
}

// Providers lists the chain's member names in fallback order.
func (c *FallbackChain) Providers() []string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.name
	}
	return names
}

// Generate implements llm.ChatModel: it tries each member in order,
// skipping those with an open breaker, and returns the first success.
func (c *FallbackChain) Generate(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) (*schema.AIMessage, error) {
	var lastErr error
	for _, m := range c.members {
		model := m.model
		if len(c.tools) > 0 {
			model = model.BindTools(c.tools)
		}
		result, err := m.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
			return model.Generate(ctx, msgs, opts...)
		})
		if err == nil {
			return result.(*schema.AIMessage), nil
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Debug("llmchain: provider circuit open, skipping", "provider", m.name)
		} else {
			c.logger.Warn("llmchain: provider failed, trying next", "provider", m.name, "error", err)
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = resilience.ErrCircuitOpen
	}
	return nil, fmt.Errorf("llmchain: all providers failed: %w", lastErr)
}

// Stream implements llm.ChatModel. A member counts as failed only if its
// stream errors before yielding any chunk; once a chunk has been emitted
// the stream is committed to that provider and a later error is terminal.
func (c *FallbackChain) Stream(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) iter.Seq2[schema.StreamChunk, error] {
	return func(yield func(schema.StreamChunk, error) bool) {
		var lastErr error
		for _, m := range c.members {
			if m.breaker.State() == resilience.StateOpen {
				c.logger.Debug("llmchain: provider circuit open, skipping", "provider", m.name)
				continue
			}
			model := m.model
			if len(c.tools) > 0 {
				model = model.BindTools(c.tools)
			}

			committed := false
			failedEarly := false
			for chunk, err := range model.Stream(ctx, msgs, opts...) {
				if err != nil && !committed {
					c.logger.Warn("llmchain: provider stream failed before first chunk, trying next",
						"provider", m.name, "error", err)
					lastErr = err
					failedEarly = true
					break
				}
				committed = true
				if !yield(chunk, err) {
					return
				}
				if err != nil {
					return
				}
			}
			if failedEarly {
				// Record the failure so repeated early failures trip the breaker.
				m.breaker.Execute(ctx, func(context.Context) (any, error) { return nil, lastErr })
				if ctx.Err() != nil {
					yield(schema.StreamChunk{}, ctx.Err())
					return
				}
				continue
			}
			if committed {
				m.breaker.Execute(ctx, func(context.Context) (any, error) { return nil, nil })
			}
			return
		}
		if lastErr == nil {
			lastErr = resilience.ErrCircuitOpen
		}
		yield(schema.StreamChunk{}, fmt.Errorf("llmchain: all providers failed: %w", lastErr))
	}
}

// BindTools implements llm.ChatModel.
func (c *FallbackChain) BindTools(tools []schema.ToolDefinition) llm.ChatModel {
	return &FallbackChain{members: c.members, logger: c.logger, tools: tools}
}

// ModelID implements llm.ChatModel, reporting the primary member's id.
func (c *FallbackChain) ModelID() string {
	return c.members[0].model.ModelID()
}

var _ llm.ChatModel = (*FallbackChain)(nil)
