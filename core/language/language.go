// Package language decides which language a user spoke by reconciling the
// recognizer's acoustic guess with a text based guess on the transcript.
package language

type Source string

const (
	SourceAcoustic Source = "acoustic"
	SourceText     Source = "text"
)

// Signal is one language hypothesis. Confidence is nil when the source did
// not report one.
type Signal struct {
	Source     Source
	Code       string
	Confidence *float64
}

type Reason string

const (
	ReasonTranscriptTooShort       Reason = "transcript too short"
	ReasonTextDetectionUnavailable Reason = "text detection unavailable"
	ReasonLanguagesAgree           Reason = "languages agree"
	ReasonTextVeryConfident        Reason = "text very confident"
	ReasonAcousticOverconfident    Reason = "acoustic overconfident"
	ReasonTextClearWinner          Reason = "text clear winner"
	ReasonInsufficientConfidence   Reason = "insufficient confidence"
	ReasonAcousticMissing          Reason = "acoustic missing"
	ReasonNoConfidentLanguage      Reason = "no confident language"
	ReasonUnmappedTextLanguage     Reason = "unmapped text language"
)

// Result is the arbitrated language. Code is empty when no language could
// be decided. Overridden is true when Code comes from the text detector
// rather than from the acoustic signal.
type Result struct {
	Code       string
	Overridden bool
	Reason     Reason
	// Text is the top text candidate, nil when text detection did not run.
	Text *Signal
}

// Candidate is one language proposed by a TextDetector. Code is a base
// language code such as "en" or "zh-cn".
type Candidate struct {
	Code        string
	Probability float64
}

// TextDetector proposes languages for a piece of text, most probable first.
type TextDetector interface {
	Detect(text string) ([]Candidate, error)
}
