package streaming

import "strings"

var speechReplacer = strings.NewReplacer(
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u00ab", `"`,
	"\u00bb", `"`,
	"\u2013", "-",
	"\u2014", "-",
	"\u2026", "...",
	"\u00a0", " ",
	"\u202f", " ",
)

// SanitizeForSpeech replaces typographic punctuation that synthesis engines
// tend to mispronounce with plain ASCII.
func SanitizeForSpeech(text string) string {
	return speechReplacer.Replace(text)
}
