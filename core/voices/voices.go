// Package voices maps languages onto synthesis voices and keeps track of the
// voice a session currently speaks with.
package voices

import (
	"maps"
	"slices"
	"strings"
)

// Config is the synthesis voice for one language.
type Config struct {
	VoiceID      string
	LanguageCode string
}

const DefaultLanguage = "en-US"

var table = map[string]Config{
	"en-US": {VoiceID: "Magpie-Multilingual.EN-US.Mia.Neutral", LanguageCode: "en-US"},
	"es-US": {VoiceID: "Magpie-Multilingual.ES-US.Isabela", LanguageCode: "es-US"},
	"fr-FR": {VoiceID: "Magpie-Multilingual.FR-FR.Pascal", LanguageCode: "fr-FR"},
	"de-DE": {VoiceID: "Magpie-Multilingual.DE-DE.Aria", LanguageCode: "de-DE"},
	"zh-CN": {VoiceID: "Magpie-Multilingual.ZH-CN.Mia", LanguageCode: "zh-CN"},
}

// byBase resolves regional variants ("en-GB", "zh-TW") through their base
// language.
var byBase = map[string]string{
	"en": "en-US",
	"es": "es-US",
	"fr": "fr-FR",
	"de": "de-DE",
	"zh": "zh-CN",
}

// Lookup returns the voice for languageCode. Exact table entries win over
// regional variants. The second return value is false when the language is
// not supported.
func Lookup(languageCode string) (Config, bool) {
	code := strings.TrimSpace(languageCode)
	for key, config := range table {
		if strings.EqualFold(key, code) {
			return config, true
		}
	}

	base := strings.ToLower(code)
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if key, ok := byBase[base]; ok {
		return table[key], true
	}
	return Config{}, false
}

// Supported reports whether languageCode resolves to a voice.
func Supported(languageCode string) bool {
	_, ok := Lookup(languageCode)
	return ok
}

// Languages lists the supported language codes in lexical order.
func Languages() []string {
	return slices.Sorted(maps.Keys(table))
}
