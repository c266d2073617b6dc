package ragchain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/peraturan-ai/legalrag/llm"
	"github.com/peraturan-ai/legalrag/schema"
)

const (
	defaultGroundingBudget = 5 * time.Second
	groundingSnippetLimit  = 5
)

const groundingJudgePrompt = `Anda adalah pemeriksa fakta. Periksa apakah setiap klaim dalam jawaban berikut didukung oleh kutipan sumber yang diberikan.

Sumber:
%s

Jawaban yang diperiksa:
%s

Balas HANYA dengan JSON berformat:
{"grounding_score": <0.0-1.0>, "grounded_claims": ["..."], "ungrounded_claims": ["..."]}`

type groundingVerdict struct {
	GroundingScore   *float64 `json:"grounding_score"`
	GroundedClaims   []string `json:"grounded_claims"`
	UngroundedClaims []string `json:"ungrounded_claims"`
}

var groundingJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)

// VerifyGrounding asks the judge model whether the answer's claims are
// supported by the top citation snippets, under a soft time budget. Any
// failure (judge error, malformed JSON, timeout) leaves the grounding score
// nil rather than failing the request.
func VerifyGrounding(ctx context.Context, judge llm.ChatModel, answer string, citations []Citation, budget time.Duration) (*float64, []string) {
	if judge == nil || answer == "" {
		return nil, nil
	}
	if budget <= 0 {
		budget = defaultGroundingBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var sb strings.Builder
	n := len(citations)
	if n > groundingSnippetLimit {
		n = groundingSnippetLimit
	}
	for _, c := range citations[:n] {
		snippet, _ := c.Metadata["snippet"].(string)
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", c.Number, c.Citation, snippet)
	}

	prompt := fmt.Sprintf(groundingJudgePrompt, sb.String(), answer)
	resp, err := judge.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)})
	if err != nil || resp == nil {
		return nil, nil
	}

	raw := groundingJSONPattern.FindString(resp.Text())
	if raw == "" {
		return nil, nil
	}
	var verdict groundingVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil || verdict.GroundingScore == nil {
		return nil, nil
	}
	score := clamp01(*verdict.GroundingScore)
	return &score, verdict.UngroundedClaims
}
