// Package legalref detects Indonesian legal references in free text: both
// structured citations in a search query (to build a metadata filter) and
// citations/amendment clauses within a document's body (to build a
// knowledge graph).
package legalref

import (
	"regexp"
	"strconv"
	"strings"
)

// Filter is a conjunction of equality constraints on chunk metadata fields,
// as produced by DetectQuery and consumed by a vector index search.
type Filter struct {
	JenisDokumen string
	Nomor        string
	Tahun        int
	Pasal        string
	Ayat         string
}

var jenisCanonical = map[string]string{
	"uu":                 "UU",
	"undang-undang":      "UU",
	"pp":                 "PP",
	"peraturan pemerintah": "PP",
	"perpres":            "Perpres",
	"peraturan presiden":  "Perpres",
	"permen":             "Permen",
	"peraturan menteri":   "Permen",
	"perda":              "Perda",
	"peraturan daerah":    "Perda",
	"perppu":             "Perppu",
}

const jenisAlternation = `UU|PP|Perpres|Permen|Perda|Perppu`

var (
	queryRefWithPasal = regexp.MustCompile(
		`(?i)Pasal\s+(\d+)` +
			`\s+(?:ayat\s+\((\d+)\)\s+)?` +
			`(` + jenisAlternation + `)` +
			`\s+(?:(?:No(?:mor)?\.?\s*)?(\d+)` +
			`(?:\s+[Tt]ahun\s+|\s*/\s*)(\d{4}))`,
	)
	queryRefCompact = regexp.MustCompile(
		`(?i)Pasal\s+(\d+)` +
			`\s+(?:ayat\s+\((\d+)\)\s+)?` +
			`(` + jenisAlternation + `)` +
			`\s+(\d+)/(\d{4})`,
	)
	queryRefNoPasal = regexp.MustCompile(
		`(?i)(` + jenisAlternation + `)` +
			`\s+(?:No(?:mor)?\.?\s*)?(\d+)` +
			`(?:\s+[Tt]ahun\s+|\s*/\s*)(\d{4})`,
	)
)

func canonicalJenis(raw string) string {
	if c, ok := jenisCanonical[strings.ToLower(raw)]; ok {
		return c
	}
	return raw
}

// DetectQuery scans query for a structured legal reference — a Pasal
// citation to a specific regulation, or a bare regulation citation — and
// returns the equivalent metadata Filter. It returns nil if no reference is
// found.
func DetectQuery(query string) *Filter {
	for _, pattern := range []*regexp.Regexp{queryRefWithPasal, queryRefCompact} {
		m := pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		tahun, _ := strconv.Atoi(m[5])
		f := &Filter{
			JenisDokumen: canonicalJenis(m[3]),
			Nomor:        m[4],
			Tahun:        tahun,
			Pasal:        m[1],
		}
		if m[2] != "" {
			f.Ayat = m[2]
		}
		return f
	}

	if m := queryRefNoPasal.FindStringSubmatch(query); m != nil {
		tahun, _ := strconv.Atoi(m[3])
		return &Filter{
			JenisDokumen: canonicalJenis(m[1]),
			Nomor:        m[2],
			Tahun:        tahun,
		}
	}

	return nil
}
