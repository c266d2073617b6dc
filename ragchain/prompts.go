package ragchain

import (
	"fmt"
	"strings"
)

// AnswerMode selects the generation style.
type AnswerMode string

const (
	// ModeAnalysis answers with step-by-step legal reasoning over the
	// retrieved sources.
	ModeAnalysis AnswerMode = "analysis"
	// ModeVerbatim answers by quoting the retrieved article text directly.
	ModeVerbatim AnswerMode = "verbatim"
)

// QuestionType classifies an Indonesian legal question by intent.
type QuestionType string

const (
	QuestionDefinition   QuestionType = "definition"
	QuestionProcedure    QuestionType = "procedure"
	QuestionRequirements QuestionType = "requirements"
	QuestionSanctions    QuestionType = "sanctions"
	QuestionGeneral      QuestionType = "general"
)

var questionTypeCues = []struct {
	qtype QuestionType
	cues  []string
}{
	{QuestionDefinition, []string{"apa itu", "definisi", "pengertian", "apa yang dimaksud"}},
	{QuestionProcedure, []string{"bagaimana cara", "bagaimana prosedur", "langkah", "tata cara", "prosedur"}},
	{QuestionRequirements, []string{"syarat", "persyaratan", "dokumen apa", "apa saja yang diperlukan"}},
	{QuestionSanctions, []string{"sanksi", "denda", "hukuman", "pidana", "akibat hukum"}},
}

// DetectQuestionType classifies question by keyword, first cue wins.
func DetectQuestionType(question string) QuestionType {
	lower := strings.ToLower(question)
	for _, entry := range questionTypeCues {
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				return entry.qtype
			}
		}
	}
	return QuestionGeneral
}

const analysisSystemPrompt = `Anda adalah ahli hukum Indonesia yang menjawab pertanyaan berdasarkan dokumen peraturan perundang-undangan yang diberikan.

Cara menjawab:
1. Baca setiap sumber bernomor dengan teliti.
2. Pikirkan langkah demi langkah peraturan mana yang relevan dan bagaimana ketentuannya saling berkaitan.
3. Jawab HANYA berdasarkan isi sumber. Jika sumber tidak memuat jawabannya, katakan bahwa informasi tersebut tidak ditemukan dalam dokumen yang tersedia.
4. Sertakan rujukan [n] setiap kali Anda mengutip atau menyimpulkan dari sumber nomor n.
5. Gunakan bahasa Indonesia yang baku dan jelas.`

var questionTypeAddenda = map[QuestionType]string{
	QuestionDefinition:   "Pertanyaan ini meminta definisi. Mulailah dengan definisi resmi dari peraturan, sebutkan pasalnya, lalu jelaskan maknanya dengan bahasa sederhana.",
	QuestionProcedure:    "Pertanyaan ini meminta prosedur. Uraikan langkah-langkahnya secara berurutan dan sebutkan dasar hukum setiap langkah.",
	QuestionRequirements: "Pertanyaan ini meminta persyaratan. Daftarkan semua syarat yang disebutkan peraturan, kelompokkan bila perlu, dan sebutkan pasal sumbernya.",
	QuestionSanctions:    "Pertanyaan ini menyangkut sanksi. Sebutkan jenis sanksi (administratif, perdata, pidana), besarannya, dan pasal yang mengaturnya.",
}

const verbatimSystemPrompt = `Anda adalah asisten dokumentasi hukum Indonesia. Jawab pertanyaan dengan MENGUTIP teks pasal yang relevan apa adanya dari sumber bernomor yang diberikan, tanpa parafrase. Awali setiap kutipan dengan rujukan [n] dan nama pasalnya. Jika tidak ada pasal yang relevan, katakan demikian.`

// jsonFooterInstruction asks the model for a machine-readable trailer so
// cited sources can be extracted without regex guessing.
const jsonFooterInstruction = `Setelah jawaban selesai, tambahkan blok JSON pada baris terakhir dengan format persis:
` + "```json" + `
{"cited_sources": [<nomor sumber yang benar-benar Anda gunakan>]}
` + "```"

// SystemPrompt returns the system message for the given mode and question
// type.
func SystemPrompt(mode AnswerMode, qtype QuestionType) string {
	if mode == ModeVerbatim {
		return verbatimSystemPrompt
	}
	if addendum, ok := questionTypeAddenda[qtype]; ok {
		return analysisSystemPrompt + "\n\n" + addendum
	}
	return analysisSystemPrompt
}

// UserPrompt renders the numbered context and the question, ending with the
// mandatory JSON footer instruction.
func UserPrompt(context, question string) string {
	return fmt.Sprintf("Sumber peraturan:\n\n%s\n\nPertanyaan: %s\n\n%s", context, question, jsonFooterInstruction)
}
