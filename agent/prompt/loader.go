package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/extraction.txt
	extractionRaw string

	//go:embed template/verification.txt
	verificationRaw string

	//go:embed template/ranking.txt
	rankingRaw string

	//go:embed template/selection.txt
	selectionRaw string

	//go:embed template/nostock.txt
	nostockRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Intent       string
	Extraction   string
	Verification string
	Ranking      string
	Selection    string
	NoStock      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Intent:       strings.TrimSpace(intentRaw),
		Extraction:   strings.TrimSpace(extractionRaw),
		Verification: strings.TrimSpace(verificationRaw),
		Ranking:      strings.TrimSpace(rankingRaw),
		Selection:    strings.TrimSpace(selectionRaw),
		NoStock:      strings.TrimSpace(nostockRaw),
	}
}
