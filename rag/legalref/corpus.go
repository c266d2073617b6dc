package legalref

import (
	"regexp"
	"sort"
	"strings"
)

// Citation is a normalized legal reference extracted from a document body,
// used as a knowledge-graph edge between regulations.
type Citation struct {
	RawText   string
	Jenis     string
	Nomor     string
	Tahun     string
	Relation  string // "dimaksud dalam", "telah diubah dengan", etc.; "" if none.
	Canonical string // e.g. "UU-11-2008".
}

var corpusJenisCanonical = map[string]string{
	"undang-undang":       "UU",
	"peraturan pemerintah": "PP",
	"peraturan presiden":   "Perpres",
	"peraturan menteri":    "Permen",
	"keputusan presiden":   "Keppres",
	"uu":                   "UU",
	"pp":                   "PP",
	"perpres":              "Perpres",
	"permen":               "Permen",
	"keppres":              "Keppres",
	"pmk":                  "PMK",
	"perppu":               "Perppu",
}

// normalizeJenis maps a regulation-type mention (full Indonesian name or
// abbreviation, any case/spacing) to its canonical abbreviated form.
func normalizeJenis(raw string) string {
	cleaned := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if canon, ok := corpusJenisCanonical[cleaned]; ok {
		return canon
	}
	return strings.Title(strings.ToLower(strings.TrimSpace(raw)))
}

var (
	patternStandard = regexp.MustCompile(
		`(?i)(?P<jenis>Undang-Undang|Peraturan Pemerintah|Peraturan Presiden|Peraturan Menteri|Keputusan Presiden)` +
			`\s+Nomor\s+(?P<nomor>\d+(?:/[A-Z]+)?)` +
			`\s+Tahun\s+(?P<tahun>\d{4})`,
	)
	patternAbbreviated = regexp.MustCompile(
		`(?i)(?P<jenis>UU|PP|Perpres|Permen|Keppres|PMK|Perppu)` +
			`(?:\s+No\.?|\s+Nomor)?\s*(?P<nomor>\d+)` +
			`(?:/|(?:\s+Tahun\s+))(?P<tahun>\d{4})`,
	)
	patternCrossRef = regexp.MustCompile(
		`(?i)sebagaimana\s+(?P<relation>dimaksud dalam|telah diubah dengan|telah dicabut dengan|tercantum dalam)` +
			`\s+(?P<citation>(?:Undang-Undang|UU|PP|Perpres).*?(?:Tahun\s+\d{4}|\d{4}))`,
	)
	patternAmendments = regexp.MustCompile(
		`(?i)telah\s+(?:\w+\s+kali\s+)?(?P<action>diubah|dicabut|diganti)(?:\s+terakhir)?` +
			`\s+dengan\s+(?P<citation>(?:PP|UU|Perpres|Permen).*?(?:Tahun\s+\d{4}|\d{4}))`,
	)
)

func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}

func extractFromCitation(text string) (jenis, nomor, tahun string, ok bool) {
	if m := patternStandard.FindStringSubmatch(text); m != nil {
		g := namedGroups(patternStandard, m)
		return g["jenis"], g["nomor"], g["tahun"], true
	}
	if m := patternAbbreviated.FindStringSubmatch(text); m != nil {
		g := namedGroups(patternAbbreviated, m)
		return g["jenis"], g["nomor"], g["tahun"], true
	}
	return "", "", "", false
}

// ExtractCitations scans text for legal citations in standard form
// ("Undang-Undang Nomor 11 Tahun 2008"), abbreviated form ("UU 11/2008"),
// and cross-reference/amendment clauses ("sebagaimana telah diubah dengan
// ...", "telah diubah dengan ..."), deduplicating by canonical regulation
// ID and returning results sorted by that ID.
func ExtractCitations(text string) []Citation {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]Citation)
	upsert := func(jenisRaw, nomor, tahun, relation, raw string) {
		jenis := normalizeJenis(jenisRaw)
		canonical := jenis + "-" + nomor + "-" + tahun
		existing, ok := seen[canonical]
		if !ok || (existing.Relation == "" && relation != "") {
			seen[canonical] = Citation{
				RawText: raw, Jenis: jenis, Nomor: nomor, Tahun: tahun,
				Relation: relation, Canonical: canonical,
			}
		}
	}

	for _, m := range patternStandard.FindAllStringSubmatch(text, -1) {
		g := namedGroups(patternStandard, m)
		upsert(g["jenis"], g["nomor"], g["tahun"], "", m[0])
	}
	for _, m := range patternAbbreviated.FindAllStringSubmatch(text, -1) {
		g := namedGroups(patternAbbreviated, m)
		upsert(g["jenis"], g["nomor"], g["tahun"], "", m[0])
	}
	for _, m := range patternCrossRef.FindAllStringSubmatch(text, -1) {
		g := namedGroups(patternCrossRef, m)
		if jenis, nomor, tahun, ok := extractFromCitation(g["citation"]); ok {
			upsert(jenis, nomor, tahun, strings.TrimSpace(g["relation"]), m[0])
		}
	}
	for _, m := range patternAmendments.FindAllStringSubmatch(text, -1) {
		g := namedGroups(patternAmendments, m)
		if jenis, nomor, tahun, ok := extractFromCitation(g["citation"]); ok {
			upsert(jenis, nomor, tahun, strings.TrimSpace(g["action"]), m[0])
		}
	}

	results := make([]Citation, 0, len(seen))
	for _, c := range seen {
		results = append(results, c)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Canonical < results[j].Canonical })
	return results
}

// AmendmentType categorizes a detected relationship between two regulations.
type AmendmentType string

const (
	AmendmentAmends      AmendmentType = "amends"
	AmendmentRevokes     AmendmentType = "revokes"
	AmendmentReplaces    AmendmentType = "replaces"
	AmendmentSupplements AmendmentType = "supplements"
)

// AmendmentRelation is a detected amends/revokes/replaces/supplements edge
// between two regulations, destined for the knowledge graph.
type AmendmentRelation struct {
	SourceRegulation string
	TargetRegulation string
	Type             AmendmentType
	RawText          string
	Confidence       float64
}

const targetPattern = `(?P<target>(?:Undang-Undang|Peraturan Pemerintah|Peraturan Presiden|Peraturan Menteri|UU|PP|Perpres|Permen)` +
	`(?:\s+Nomor|\s+No\.?)?\s+(?:\d+)(?:\s+Tahun\s+\d{4}|/\d{4}))`

var amendmentPatterns = []struct {
	typ     AmendmentType
	pattern *regexp.Regexp
}{
	{AmendmentAmends, regexp.MustCompile(`(?i)(?:mengubah|perubahan\s+atas)\s+` + targetPattern)},
	{AmendmentRevokes, regexp.MustCompile(`(?i)(?:mencabut|pencabutan)\s+` + targetPattern)},
	{AmendmentReplaces, regexp.MustCompile(`(?i)(?:mengganti|penggantian)\s+` + targetPattern)},
	{AmendmentSupplements, regexp.MustCompile(`(?i)(?:melengkapi|penambahan\s+atas)\s+` + targetPattern)},
}

var (
	targetFullForm = regexp.MustCompile(
		`(?i)(?P<jenis>Undang-Undang|Peraturan Pemerintah|Peraturan Presiden|Peraturan Menteri)` +
			`\s+(?:Nomor|No\.?)\s*(?P<nomor>\d+)\s+Tahun\s+(?P<tahun>\d{4})`,
	)
	targetAbbrev = regexp.MustCompile(
		`(?i)(?P<jenis>UU|PP|Perpres|Permen)(?:\s+(?:Nomor|No\.?))?\s*(?P<nomor>\d+)` +
			`(?:\s+Tahun\s+(?P<tahun>\d{4})|/(?P<tahun2>\d{4}))`,
	)
	titlePattern = regexp.MustCompile(`(?i)(?:perubahan|pencabutan|penggantian)\s+(?:atas\s+)?` + targetPattern)
)

var titleTypeMap = map[string]AmendmentType{
	"perubahan":   AmendmentAmends,
	"pencabutan":  AmendmentRevokes,
	"penggantian": AmendmentReplaces,
}

func parseTarget(targetText string) (string, bool) {
	if m := targetFullForm.FindStringSubmatch(targetText); m != nil {
		g := namedGroups(targetFullForm, m)
		return normalizeJenis(g["jenis"]) + "-" + g["nomor"] + "-" + g["tahun"], true
	}
	if m := targetAbbrev.FindStringSubmatch(targetText); m != nil {
		g := namedGroups(targetAbbrev, m)
		tahun := g["tahun"]
		if tahun == "" {
			tahun = g["tahun2"]
		}
		return normalizeJenis(g["jenis"]) + "-" + g["nomor"] + "-" + tahun, true
	}
	return "", false
}

// DetectAmendments scans a regulation's body text for amendment/revocation/
// replacement/supplementation language and returns every detected relation
// at confidence 1.0 (exact body-text match).
func DetectAmendments(text, sourceRegulationID string) []AmendmentRelation {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var results []AmendmentRelation
	for _, ap := range amendmentPatterns {
		for _, m := range ap.pattern.FindAllStringSubmatch(text, -1) {
			g := namedGroups(ap.pattern, m)
			target, ok := parseTarget(g["target"])
			if !ok {
				continue
			}
			results = append(results, AmendmentRelation{
				SourceRegulation: sourceRegulationID,
				TargetRegulation: target,
				Type:             ap.typ,
				RawText:          m[0],
				Confidence:       1.0,
			})
		}
	}
	return results
}

// DetectAmendmentsFromTitle scans a regulation's title (e.g. "Perubahan atas
// UU Nomor 11 Tahun 2008") for amendment relationships, at confidence 0.8
// since titles are less precise than body text.
func DetectAmendmentsFromTitle(title, regulationID string) []AmendmentRelation {
	if strings.TrimSpace(title) == "" {
		return nil
	}
	var results []AmendmentRelation
	for _, m := range titlePattern.FindAllStringSubmatch(title, -1) {
		g := namedGroups(titlePattern, m)
		words := strings.Fields(m[0])
		if len(words) == 0 {
			continue
		}
		typ, ok := titleTypeMap[strings.ToLower(words[0])]
		if !ok {
			continue
		}
		target, ok := parseTarget(g["target"])
		if !ok {
			continue
		}
		results = append(results, AmendmentRelation{
			SourceRegulation: regulationID,
			TargetRegulation: target,
			Type:             typ,
			RawText:          m[0],
			Confidence:       0.8,
		})
	}
	return results
}
