// Package queryexpand generates query variants via rule-based Indonesian
// legal-term synonym expansion: abbreviation/full-name pairs, procedural
// synonyms, and regulation-type abbreviations. It is a fixed lookup table,
// not an LLM call, so it is cheap enough to run on every query.
package queryexpand

import (
	"regexp"
	"strings"
)

// synonymGroups lists sets of interchangeable Indonesian legal terms. A
// query mentioning any term in a group is a candidate for expansion with
// that group's other terms.
var synonymGroups = [][]string{
	// Business entity & corporate terms.
	{"PT", "Perseroan Terbatas", "perusahaan"},
	{"CV", "Commanditaire Vennootschap", "persekutuan komanditer"},
	{"firma", "Fa", "persekutuan firma"},
	{"koperasi", "badan usaha koperasi"},
	{"BUMN", "Badan Usaha Milik Negara", "perusahaan negara"},
	{"BUMD", "Badan Usaha Milik Daerah", "perusahaan daerah"},
	{"yayasan", "badan hukum yayasan", "organisasi nirlaba"},
	{"direksi", "direktur", "pengurus perseroan"},
	{"komisaris", "dewan komisaris", "pengawas"},
	{"RUPS", "Rapat Umum Pemegang Saham"},
	// Employment & labor terms.
	{"karyawan", "pekerja", "buruh", "tenaga kerja"},
	{"PHK", "Pemutusan Hubungan Kerja", "pemberhentian kerja"},
	{"PKWT", "Perjanjian Kerja Waktu Tertentu", "kontrak kerja"},
	{"PKWTT", "Perjanjian Kerja Waktu Tidak Tertentu", "karyawan tetap"},
	{"gaji", "upah", "penghasilan", "remunerasi"},
	{"UMR", "UMK", "UMP", "upah minimum", "upah minimum regional"},
	{"pesangon", "uang pesangon", "kompensasi PHK"},
	{"lembur", "kerja lembur", "waktu kerja tambahan"},
	{"cuti", "cuti tahunan", "istirahat kerja", "hak istirahat"},
	{"serikat pekerja", "serikat buruh", "organisasi pekerja"},
	// Licensing & permits.
	{"NIB", "Nomor Induk Berusaha", "izin berusaha"},
	{"izin", "perizinan", "lisensi", "permit"},
	{"OSS", "Online Single Submission", "perizinan daring"},
	{"UMKM", "Usaha Mikro Kecil Menengah", "usaha kecil"},
	{"TDP", "Tanda Daftar Perusahaan"},
	{"SIUP", "Surat Izin Usaha Perdagangan", "izin usaha"},
	{"IMB", "Izin Mendirikan Bangunan", "PBG", "Persetujuan Bangunan Gedung"},
	// Tax & fiscal terms.
	{"pajak", "perpajakan", "fiskal"},
	{"NPWP", "Nomor Pokok Wajib Pajak"},
	{"PPN", "Pajak Pertambahan Nilai", "VAT"},
	{"PPh", "Pajak Penghasilan", "income tax"},
	{"Bea Cukai", "kepabeanan", "cukai"},
	{"retribusi", "pungutan daerah", "retribusi daerah"},
	// Investment & capital.
	{"modal", "investasi", "penanaman modal"},
	{"PMA", "Penanaman Modal Asing", "investasi asing"},
	{"PMDN", "Penanaman Modal Dalam Negeri", "investasi domestik"},
	// Land & environment.
	{"tanah", "agraria", "pertanahan"},
	{"lingkungan", "lingkungan hidup", "ekologi"},
	{"Amdal", "Analisis Mengenai Dampak Lingkungan", "kajian lingkungan"},
	{"HGU", "Hak Guna Usaha", "hak atas tanah"},
	// Regulation type abbreviations.
	{"UU", "Undang-Undang", "undang undang"},
	{"PP", "Peraturan Pemerintah"},
	{"Perpres", "Peraturan Presiden"},
	{"Permen", "Peraturan Menteri"},
	{"Perda", "Peraturan Daerah"},
	{"Perppu", "Peraturan Pemerintah Pengganti Undang-Undang"},
	{"SKB", "Surat Keputusan Bersama"},
	// Legal code abbreviations.
	{"KUHPerdata", "Kitab Undang-Undang Hukum Perdata", "BW", "Burgerlijk Wetboek"},
	{"KUHP", "Kitab Undang-Undang Hukum Pidana", "KUHPidana"},
	{"KUHAP", "Kitab Undang-Undang Hukum Acara Pidana"},
	// Legal domain terms.
	{"pidana", "kriminal", "hukum pidana"},
	{"perdata", "sipil", "hukum perdata", "hukum privat"},
	{"kontrak", "perjanjian", "perikatan"},
	{"gugatan", "tuntutan", "dakwaan"},
	{"banding", "naik banding", "upaya hukum banding"},
	// Specific regulations & programs.
	{"Cipta Kerja", "Omnibus Law", "UU 11/2020"},
	{"data pribadi", "privasi", "PDP", "pelindungan data"},
	{"CSR", "Tanggung Jawab Sosial", "tanggung jawab sosial dan lingkungan", "TJSL"},
	{"BPJS", "Badan Penyelenggara Jaminan Sosial", "jaminan sosial"},
	{"PKB", "Perjanjian Kerja Bersama", "kesepakatan kerja bersama"},
}

const maxVariants = 3

type match struct {
	term         string
	alternatives []string
}

// Expand returns query plus up to two additional variants built from
// synonym substitution: one with the first matched term(s) replaced by
// their synonym, and one with extra synonym keywords appended.
func Expand(query string) []string {
	queries := []string{query}
	lower := strings.ToLower(query)

	var matches []match
	for _, group := range synonymGroups {
		for _, term := range group {
			if !strings.Contains(lower, strings.ToLower(term)) {
				continue
			}
			var alternatives []string
			for _, t := range group {
				if !strings.EqualFold(t, term) {
					alternatives = append(alternatives, t)
				}
			}
			if len(alternatives) > 0 {
				matches = append(matches, match{term: term, alternatives: alternatives})
			}
			break
		}
	}

	if len(matches) == 0 {
		return queries
	}

	variant1 := query
	limit := len(matches)
	if limit > 2 {
		limit = 2
	}
	for _, m := range matches[:limit] {
		variant1 = replaceFirstFold(variant1, m.term, m.alternatives[0])
	}
	if variant1 != query && !contains(queries, variant1) {
		queries = append(queries, variant1)
	}

	var extra []string
	for _, m := range matches {
		extra = append(extra, m.alternatives[0])
	}
	if len(extra) > 0 {
		if len(extra) > 3 {
			extra = extra[:3]
		}
		variant2 := query + " " + strings.Join(extra, " ")
		if !contains(queries, variant2) {
			queries = append(queries, variant2)
		}
	}

	if len(queries) > maxVariants {
		queries = queries[:maxVariants]
	}
	return queries
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// replaceFirstFold replaces the first case-insensitive occurrence of old in
// s with new.
func replaceFirstFold(s, old, new string) string {
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(old)).FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + new + s[loc[1]:]
}
