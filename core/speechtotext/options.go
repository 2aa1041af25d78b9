package speechtotext

import "github.com/koscakluka/ema-agentbridge/core/audio"

// Utterance is a finalized stretch of user speech. Language is the
// recognizer's guess and may be empty, Confidence is nil when the
// recognizer did not report one.
type Utterance struct {
	Transcript string
	Language   string
	Confidence *float64
}

// MultiLanguage asks the recognizer to detect the spoken language.
const MultiLanguage = "multi"

type TranscriptionOptions struct {
	InterimTranscriptionCallback func(transcript string)
	UtteranceCallback            func(utterance Utterance)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
	Language     string
}

type TranscriptionOption func(*TranscriptionOptions)

func WithUtteranceCallback(callback func(utterance Utterance)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.UtteranceCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

// WithLanguage pins the recognition language. The default is MultiLanguage.
func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}
