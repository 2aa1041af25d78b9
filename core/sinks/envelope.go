package sinks

import (
	"time"

	"github.com/koscakluka/ema-agentbridge/core/events"
)

// Envelope is the JSON shape every event is sent to a client in. Only the
// fields of the event's kind are set.
type Envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	RunID    string `json:"run_id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Error    string `json:"error,omitempty"`

	Language   string `json:"language,omitempty"`
	Acoustic   string `json:"acoustic_language,omitempty"`
	Overridden bool   `json:"overridden,omitempty"`
	Reason     string `json:"reason,omitempty"`
	VoiceID    string `json:"voice_id,omitempty"`

	Audio []byte `json:"audio,omitempty"`
}

// NewEnvelope converts event into its wire form.
func NewEnvelope(event events.Event) Envelope {
	envelope := Envelope{Type: string(event.Kind()), Timestamp: event.Timestamp()}

	switch e := event.(type) {
	case events.AssistantResponseStarted:
		envelope.RunID = e.RunID
	case events.AssistantResponseSegment:
		envelope.RunID = e.RunID
		envelope.Text = e.Segment
	case events.AssistantResponseFinal:
		envelope.RunID = e.RunID
	case events.AssistantSpeechFrame:
		envelope.Audio = e.Audio
	case events.AssistantSpeechMark:
		envelope.RunID = e.RunID
		envelope.Text = e.Text
	case events.ToolCallStarted:
		envelope.RunID = e.RunID
		envelope.Tool = e.Name
	case events.TurnStarted:
		envelope.RunID = e.RunID
		envelope.ThreadID = e.ThreadID
	case events.TurnCompleted:
		envelope.RunID = e.RunID
	case events.TurnFailed:
		envelope.RunID = e.RunID
		envelope.Error = e.Error
	case events.TurnCancelled:
		envelope.RunID = e.RunID
	case events.UserTranscriptInterim:
		envelope.Text = e.Transcript
	case events.UserTranscriptFinal:
		envelope.Text = e.Transcript
		envelope.Language = e.Language
	case events.LanguageArbitrated:
		envelope.Acoustic = e.Acoustic
		envelope.Language = e.Language
		envelope.Overridden = e.Overridden
		envelope.Reason = e.Reason
	case events.VoiceSwitched:
		envelope.VoiceID = e.VoiceID
		envelope.Language = e.LanguageCode
	}

	return envelope
}
