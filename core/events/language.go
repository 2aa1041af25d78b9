package events

const (
	// KindLanguageArbitrated identifies a language decision for an utterance.
	KindLanguageArbitrated Kind = "language.arbitrated"
	// KindVoiceSwitched identifies a change of the synthesis voice.
	KindVoiceSwitched Kind = "language.voice_switched"
)

// LanguageArbitrated carries the language decided for an utterance.
// Acoustic is what the recognizer reported, Language what was decided.
type LanguageArbitrated struct {
	Base
	Acoustic   string
	Language   string
	Overridden bool
	Reason     string
}

// NewLanguageArbitrated creates a language arbitrated event.
func NewLanguageArbitrated(acoustic, language string, overridden bool, reason string) LanguageArbitrated {
	return LanguageArbitrated{
		Base:       NewBase(KindLanguageArbitrated),
		Acoustic:   acoustic,
		Language:   language,
		Overridden: overridden,
		Reason:     reason,
	}
}

// VoiceSwitched reports the voice used for the next responses.
type VoiceSwitched struct {
	Base
	VoiceID      string
	LanguageCode string
}

// NewVoiceSwitched creates a voice switched event.
func NewVoiceSwitched(voiceID, languageCode string) VoiceSwitched {
	return VoiceSwitched{Base: NewBase(KindVoiceSwitched), VoiceID: voiceID, LanguageCode: languageCode}
}
