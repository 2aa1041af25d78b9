package orchestration

import (
	"context"

	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/audio"
	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
	"github.com/koscakluka/ema-agentbridge/core/texttospeech"
	"github.com/koscakluka/ema-agentbridge/core/voices"
)

type BridgeOption func(*Bridge)

// OutputSink receives everything the bridge produces, in order per run.
// Send may be called from several goroutines, implementations serialize
// their writes.
type OutputSink interface {
	Send(event events.Event) error
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

type SpeechSynthesizer interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error)
}

func WithRemoteRunClient(client agents.RemoteRunClient) BridgeOption {
	return func(b *Bridge) { b.client = client }
}

func WithOutputSink(sink OutputSink) BridgeOption {
	return func(b *Bridge) {
		if sink == nil {
			b.sink = discardSink{}
			return
		}
		b.sink = sink
	}
}

// WithArbitrator enables validation of the recognizer's language against
// the transcript text. Without it the recognizer's language is used as is.
func WithArbitrator(arbitrator *language.Arbitrator) BridgeOption {
	return func(b *Bridge) { b.arbitrator = arbitrator }
}

func WithSwitcher(switcher *voices.Switcher) BridgeOption {
	return func(b *Bridge) { b.switcher = switcher }
}

func WithSpeechToText(client SpeechToText) BridgeOption {
	return func(b *Bridge) { b.speechToText.set(client) }
}

// WithSynthesizer speaks every response with the voice the switcher
// currently selects.
func WithSynthesizer(synthesizer SpeechSynthesizer) BridgeOption {
	return func(b *Bridge) { b.synthesizer = synthesizer }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) BridgeOption {
	return func(b *Bridge) {
		if !encodingInfo.IsZero() {
			b.encodingInfo = encodingInfo
		}
	}
}

// WithRecognitionLanguage pins the language speech is transcribed in. By
// default the recognizer detects it.
func WithRecognitionLanguage(code string) BridgeOption {
	return func(b *Bridge) {
		if code != "" {
			b.recognitionLanguage = code
		}
	}
}

// WithBaseConfig sets the run configuration every runtime override is
// merged over.
func WithBaseConfig(config agents.RunConfig) BridgeOption {
	return func(b *Bridge) { b.baseConfig = config }
}

func WithAssistant(assistantID string) BridgeOption {
	return func(b *Bridge) { b.session.AssistantID = assistantID }
}

func WithStreamMode(mode agents.StreamMode) BridgeOption {
	return func(b *Bridge) {
		if mode.Valid() {
			b.session.StreamMode = mode
		}
	}
}

// WithThreadID resumes an existing thread instead of creating one on the
// first run.
func WithThreadID(threadID string) BridgeOption {
	return func(b *Bridge) { b.session.ThreadID = threadID }
}

// WithBaseContext sets the context every run is derived from. Cancelling it
// cancels the active run.
func WithBaseContext(ctx context.Context) BridgeOption {
	return func(b *Bridge) {
		if ctx != nil {
			b.baseContext = ctx
		}
	}
}

type discardSink struct{}

func (discardSink) Send(events.Event) error { return nil }
