// Package tokenizer turns Indonesian legal text into a bag of tokens for
// BM25 indexing: lowercasing, legal-abbreviation expansion, stopword
// removal, and bigram generation.
package tokenizer

import (
	"regexp"
	"strings"
)

var legalAbbreviations = []struct {
	pattern *regexp.Regexp
	expand  string
}{
	{regexp.MustCompile(`\bpt\b`), "perseroan terbatas"},
	{regexp.MustCompile(`\bcv\b`), "commanditaire vennootschap"},
	{regexp.MustCompile(`\buu\b`), "undang undang"},
	{regexp.MustCompile(`\bpp\b`), "peraturan pemerintah"},
	{regexp.MustCompile(`\bperpres\b`), "peraturan presiden"},
	{regexp.MustCompile(`\bperda\b`), "peraturan daerah"},
	{regexp.MustCompile(`\bphk\b`), "pemutusan hubungan kerja"},
	{regexp.MustCompile(`\bnib\b`), "nomor induk berusaha"},
	{regexp.MustCompile(`\bkuhp\b`), "kitab undang hukum pidana"},
	{regexp.MustCompile(`\bkuhap\b`), "kitab undang hukum acara pidana"},
	{regexp.MustCompile(`\bkuhper\b`), "kitab undang hukum perdata"},
}

var stopwords = map[string]struct{}{
	"dan": {}, "atau": {}, "yang": {}, "di": {}, "ke": {}, "dari": {}, "untuk": {},
	"dengan": {}, "pada": {}, "ini": {}, "itu": {}, "adalah": {}, "sebagai": {},
	"dalam": {}, "oleh": {}, "tidak": {}, "akan": {}, "dapat": {}, "telah": {},
	"tersebut": {}, "bahwa": {}, "jika": {}, "maka": {}, "atas": {}, "setiap": {},
	"ada": {}, "bagi": {}, "bisa": {}, "hal": {}, "hingga": {}, "jadi": {}, "juga": {},
	"karena": {}, "kita": {}, "lebih": {}, "lain": {}, "masih": {}, "mereka": {},
	"saat": {}, "sangat": {}, "saya": {}, "se": {}, "suatu": {}, "sudah": {},
	"tanpa": {}, "tapi": {}, "tetapi": {}, "yaitu": {},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Tokenize lowercases text, expands legal abbreviations, extracts
// alphanumeric tokens of length >= 2, drops stopwords, and appends each
// consecutive adjacent pair of surviving tokens as a joined bigram.
// Deterministic and stateless.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	for _, abbrev := range legalAbbreviations {
		text = abbrev.pattern.ReplaceAllString(text, abbrev.expand)
	}

	words := wordPattern.FindAllString(text, -1)

	filtered := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		filtered = append(filtered, w)
	}

	tokens := make([]string, 0, len(filtered)*2)
	tokens = append(tokens, filtered...)
	for i := 0; i+1 < len(filtered); i++ {
		tokens = append(tokens, filtered[i]+"_"+filtered[i+1])
	}
	return tokens
}
