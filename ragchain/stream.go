package ragchain

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/peraturan-ai/legalrag/rag/retriever"
	"github.com/peraturan-ai/legalrag/rag/tokenizer"
	"github.com/peraturan-ai/legalrag/schema"
)

// EventType discriminates streaming events.
type EventType string

const (
	// EventMetadata is emitted exactly once, before any chunk: citations,
	// sources, and the confidence score.
	EventMetadata EventType = "metadata"
	// EventChunk carries one increment of generated answer text.
	EventChunk EventType = "chunk"
	// EventDone is emitted exactly once, after the last chunk, carrying the
	// final validation.
	EventDone EventType = "done"
)

// Event is one item of a streamed response.
type Event struct {
	Type       EventType         `json:"type"`
	Citations  []Citation        `json:"citations,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
	Confidence *ConfidenceScore  `json:"confidence,omitempty"`
	Delta      string            `json:"delta,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
}

// QueryStream answers a question as a stream of typed events: one metadata
// event, zero or more chunk events, one done event. The confidence gate and
// grounding verification behave exactly as in Query; grounding runs
// synchronously on the completed text before the done event. A consumer
// that stops ranging cancels the underlying generation.
func (c *Chain) QueryStream(ctx context.Context, question string, opts ...QueryOption) iter.Seq2[Event, error] {
	cfg := c.queryConfig(opts)

	return func(yield func(Event, error) bool) {
		question := strings.TrimSpace(question)
		if question == "" || len(tokenizer.Tokenize(question)) == 0 {
			streamRefusal(yield, NoResultsMessage, RiskLow, ConfidenceScore{Score: 0, Label: ConfidenceNone})
			return
		}

		docs, err := c.retrieve(ctx, question, cfg)
		if err != nil {
			yield(Event{}, fmt.Errorf("ragchain: retrieve: %w", err))
			return
		}
		if len(docs) == 0 {
			streamRefusal(yield, NoResultsMessage, RiskLow, ConfidenceScore{Score: 0, Label: ConfidenceNone})
			return
		}

		if cfg.useParentChild && c.parents != nil {
			docs = retriever.ExpandToParents(ctx, docs, c.parents, cfg.topK)
		}
		if len(docs) > cfg.topK {
			docs = docs[:cfg.topK]
		}

		contextText, citations := BuildContext(docs)
		confidence := ComputeConfidence(docs)

		gate := c.engine.ConfidenceGate
		if gate == 0 {
			gate = defaultConfidenceGate
		}
		if confidence.Score < gate {
			streamRefusal(yield, OutOfScopeMessage, RiskRefused, confidence)
			return
		}

		if !yield(Event{
			Type:       EventMetadata,
			Citations:  citations,
			Sources:    sourceLabels(citations),
			Confidence: &confidence,
		}, nil) {
			return
		}

		system := SystemPrompt(cfg.mode, DetectQuestionType(question))
		user := UserPrompt(contextText, question)
		msgs := []schema.Message{schema.NewSystemMessage(system), schema.NewHumanMessage(user)}

		genCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var full strings.Builder
		for chunk, err := range c.model.Stream(genCtx, msgs, c.genOpts...) {
			if err != nil {
				yield(Event{}, fmt.Errorf("ragchain: generate stream: %w", err))
				return
			}
			full.WriteString(chunk.Delta)
			if chunk.Delta == "" {
				continue
			}
			if !yield(Event{Type: EventChunk, Delta: chunk.Delta}, nil) {
				return
			}
		}

		answer, cited := ExtractCitedSources(full.String())
		validation := ValidateCitations(cited, len(citations))
		if !cfg.skipGrounding {
			score, ungrounded := VerifyGrounding(ctx, c.judge, answer, citations, c.engine.GroundingBudget)
			validation.GroundingScore = score
			validation.UngroundedClaims = ungrounded
		}

		yield(Event{Type: EventDone, Validation: &validation}, nil)
	}
}

func streamRefusal(yield func(Event, error) bool, message, risk string, confidence ConfidenceScore) {
	if !yield(Event{
		Type:       EventMetadata,
		Citations:  []Citation{},
		Sources:    []string{},
		Confidence: &confidence,
	}, nil) {
		return
	}
	if !yield(Event{Type: EventChunk, Delta: message}, nil) {
		return
	}
	validation := ValidationResult{IsValid: true, HallucinationRisk: risk}
	yield(Event{Type: EventDone, Validation: &validation}, nil)
}
