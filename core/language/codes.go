package language

import "strings"

// fullCodes maps detector language codes onto the regional codes the
// recognizer and the voice table use.
var fullCodes = map[string]string{
	"en":    "en-US",
	"es":    "es-US",
	"fr":    "fr-FR",
	"de":    "de-DE",
	"zh":    "zh-CN",
	"zh-cn": "zh-CN",
	"zh-tw": "zh-CN",
	"pt":    "pt-BR",
	"it":    "it-IT",
	"ja":    "ja-JP",
	"ko":    "ko-KR",
}

// FullCode returns the regional code for a detector language code.
func FullCode(code string) (string, bool) {
	full, ok := fullCodes[strings.ToLower(strings.TrimSpace(code))]
	return full, ok
}

// BaseLanguage strips the region from a language code and lower-cases it,
// "de-DE" and "de_de" both become "de".
func BaseLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}
