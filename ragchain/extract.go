package ragchain

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```\\s*$")
	bareJSONPattern   = regexp.MustCompile(`(?s)(\{[^{}]*"cited_sources"[^{}]*\})\s*$`)
	inlineRefPattern  = regexp.MustCompile(`\[(\d+)\]`)
)

type citedSourcesFooter struct {
	CitedSources []int `json:"cited_sources"`
}

// ExtractCitedSources splits a model response into the answer text and the
// list of source numbers the model reported using. It first looks for a
// trailing JSON block (fenced or bare); when none parses, it falls back to
// collecting [n] references from the answer text itself.
func ExtractCitedSources(response string) (answer string, cited []int) {
	if m := fencedJSONPattern.FindStringSubmatchIndex(response); m != nil {
		var footer citedSourcesFooter
		if err := json.Unmarshal([]byte(response[m[2]:m[3]]), &footer); err == nil && footer.CitedSources != nil {
			return strings.TrimSpace(response[:m[0]]), dedupInts(footer.CitedSources)
		}
	}
	if m := bareJSONPattern.FindStringSubmatchIndex(response); m != nil {
		var footer citedSourcesFooter
		if err := json.Unmarshal([]byte(response[m[2]:m[3]]), &footer); err == nil && footer.CitedSources != nil {
			return strings.TrimSpace(response[:m[0]]), dedupInts(footer.CitedSources)
		}
	}

	answer = strings.TrimSpace(response)
	return answer, extractInlineRefs(answer)
}

func extractInlineRefs(text string) []int {
	var refs []int
	for _, m := range inlineRefPattern.FindAllStringSubmatch(text, -1) {
		n := 0
		for _, c := range m[1] {
			n = n*10 + int(c-'0')
		}
		refs = append(refs, n)
	}
	return dedupInts(refs)
}

func dedupInts(values []int) []int {
	seen := make(map[int]bool, len(values))
	var out []int
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
