package deepgram

import (
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/voices"
)

type deepgramVoice string

const (
	VoiceThalia  deepgramVoice = "aura-2-thalia-en"
	VoiceCeleste deepgramVoice = "aura-2-celeste-es"
	VoiceAgathe  deepgramVoice = "aura-2-agathe-fr"
	VoiceJulius  deepgramVoice = "aura-2-julius-de"
	VoiceLivia   deepgramVoice = "aura-2-livia-it"
	VoiceFujin   deepgramVoice = "aura-2-fujin-ja"

	defaultVoice = VoiceThalia
)

// voicesByLanguage holds one Aura voice per base language. Deepgram has no
// Mandarin voice, so zh falls back to the default.
var voicesByLanguage = map[string]deepgramVoice{
	"en": VoiceThalia,
	"es": VoiceCeleste,
	"fr": VoiceAgathe,
	"de": VoiceJulius,
	"it": VoiceLivia,
	"ja": VoiceFujin,
}

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceThalia, VoiceCeleste, VoiceAgathe, VoiceJulius, VoiceLivia, VoiceFujin}
}

// voiceFor picks the Aura voice for a voice configuration.
func voiceFor(config *voices.Config, fallback deepgramVoice) deepgramVoice {
	if config == nil {
		return fallback
	}
	if voice, ok := voicesByLanguage[language.BaseLanguage(config.LanguageCode)]; ok {
		return voice
	}
	return fallback
}
