package events

const (
	// KindAssistantSpeechFrame identifies synthesized assistant speech audio.
	KindAssistantSpeechFrame Kind = "assistant_speech.frame"
	// KindAssistantSpeechMark identifies text whose speech has been
	// synthesized.
	KindAssistantSpeechMark Kind = "assistant_speech.mark"
	// KindAssistantSpeechFinal identifies TTS generation completion.
	KindAssistantSpeechFinal Kind = "assistant_speech.final"
)

// AssistantSpeechFrame carries a synthesized assistant speech audio frame.
type AssistantSpeechFrame struct {
	Base
	Audio []byte
}

// NewAssistantSpeechFrame creates an assistant speech audio frame event.
func NewAssistantSpeechFrame(audio []byte) AssistantSpeechFrame {
	return AssistantSpeechFrame{Base: NewBase(KindAssistantSpeechFrame), Audio: audio}
}

// AssistantSpeechMark reports that the speech for Text has been produced.
// Clients use it to align captions with audio. Marks arrive in text order
// and concatenate to the spoken part of the response.
type AssistantSpeechMark struct {
	Base
	RunID string
	Text  string
}

func NewAssistantSpeechMark(runID, text string) AssistantSpeechMark {
	return AssistantSpeechMark{Base: NewBase(KindAssistantSpeechMark), RunID: runID, Text: text}
}

// AssistantSpeechFinal marks completion of TTS generation.
type AssistantSpeechFinal struct{ Base }

// NewAssistantSpeechFinal creates an assistant speech final event.
func NewAssistantSpeechFinal() AssistantSpeechFinal {
	return AssistantSpeechFinal{Base: NewBase(KindAssistantSpeechFinal)}
}
