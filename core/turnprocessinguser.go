package orchestration

import (
	"context"
	"strings"

	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
)

// HandleUtterance decides the language of a finished utterance, selects the
// voice for that language and submits the transcript.
//
// It runs on the caller's goroutine, the submitted run does not.
func (b *Bridge) HandleUtterance(ctx context.Context, utterance speechtotext.Utterance) error {
	transcript := strings.TrimSpace(utterance.Transcript)
	if transcript == "" {
		return ErrEmptyInput
	}
	if b.isClosed() {
		return ErrClosed
	}

	b.send(events.NewUserTranscriptFinal(transcript, utterance.Language))

	acoustic := acousticSignal(utterance)
	result := language.Result{Reason: language.ReasonTextDetectionUnavailable}
	if acoustic != nil {
		result.Code = acoustic.Code
	}
	if b.arbitrator != nil {
		result = b.arbitrator.Arbitrate(ctx, acoustic, transcript)
	}
	b.send(events.NewLanguageArbitrated(utterance.Language, result.Code, result.Overridden, string(result.Reason)))

	if result.Code != "" {
		b.stateMu.Lock()
		b.language = result.Code
		b.stateMu.Unlock()

		if b.switcher != nil {
			if config, switched := b.switcher.Select(ctx, result.Code); switched {
				b.send(events.NewVoiceSwitched(config.VoiceID, config.LanguageCode))
			}
		}
	}

	return b.Submit(ctx, transcript)
}

// acousticSignal turns the recognizer's language into a signal. Recognizers
// that only report a base language ("de") get the regional code of that
// language.
func acousticSignal(utterance speechtotext.Utterance) *language.Signal {
	code := strings.TrimSpace(utterance.Language)
	if code == "" {
		return nil
	}
	if !strings.ContainsAny(code, "-_") {
		if full, ok := language.FullCode(code); ok {
			code = full
		}
	}

	return &language.Signal{
		Source:     language.SourceAcoustic,
		Code:       code,
		Confidence: utterance.Confidence,
	}
}
