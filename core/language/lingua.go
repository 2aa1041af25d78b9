package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector detects the language of text with lingua-go. Its
// confidence values are relative to the configured languages and sum to 1,
// so the set has to include languages the voice table does not map. Text in
// those then reaches the arbitrator as an unmapped language instead of being
// forced onto the closest mapped one.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector distinguishes the given languages, or every spoken
// language lingua knows when none are given. Language models load lazily on
// first use.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	var builder lingua.LanguageDetectorBuilder
	if len(languages) == 0 {
		builder = lingua.NewLanguageDetectorBuilder().FromAllSpokenLanguages()
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(languages...)
	}

	return &LinguaDetector{detector: builder.Build()}
}

func (d *LinguaDetector) Detect(text string) ([]Candidate, error) {
	values := d.detector.ComputeLanguageConfidenceValues(text)

	candidates := make([]Candidate, 0, len(values))
	for _, value := range values {
		if value.Value() <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Code:        strings.ToLower(value.Language().IsoCode639_1().String()),
			Probability: value.Value(),
		})
	}
	return candidates, nil
}
