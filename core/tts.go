package orchestration

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/texttospeech"
)

// speechOutput speaks one response. A nil speechOutput is valid and does
// nothing, which is the case when no synthesizer is configured or the
// generator could not be created.
type speechOutput struct {
	generator texttospeech.SpeechGenerator
	failed    atomic.Bool
	cancelled atomic.Bool
	ended     atomic.Bool

	synthesized atomic.Int64
}

func (b *Bridge) startSpeech(ctx context.Context, runID string) *speechOutput {
	if b.synthesizer == nil {
		return nil
	}

	speech := &speechOutput{}
	options := []texttospeech.TextToSpeechOption{
		texttospeech.WithEncodingInfo(b.encodingInfo),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			speech.synthesized.Add(int64(len(audio)))
			b.send(events.NewAssistantSpeechFrame(audio))
		}),
		texttospeech.WithSpeechMarkCallback(func(text string) {
			if text != "" {
				b.send(events.NewAssistantSpeechMark(runID, text))
			}
		}),
		texttospeech.WithSpeechEndedCallback(func() {
			speech.ended.Store(true)
			logger.Debug("speech finished", "run_id", runID, "duration", b.encodingInfo.Duration(int(speech.synthesized.Load())))
			b.send(events.NewAssistantSpeechFinal())
		}),
		texttospeech.WithErrorCallback(func(err error) {
			logger.Warn("speech generation failed", "run_id", runID, "error", err)
		}),
	}
	if b.switcher != nil {
		options = append(options, texttospeech.WithVoice(b.switcher.Current()))
	}

	generator, err := b.synthesizer.NewSpeechGenerator(ctx, options...)
	if err != nil {
		logger.Warn("failed to start speech generation, continuing with text only", "error", err)
		return nil
	}
	speech.generator = generator

	b.speechMu.Lock()
	b.speech = speech
	b.speechMu.Unlock()
	return speech
}

// stopSpeech cancels the latest response's speech if it is still being
// produced. Speech outlives its run, so this also covers completed runs.
func (b *Bridge) stopSpeech() bool {
	b.speechMu.Lock()
	speech := b.speech
	b.speech = nil
	b.speechMu.Unlock()

	return speech.cancel()
}

func (s *speechOutput) sendText(text string) {
	if s == nil || s.failed.Load() {
		return
	}
	if err := s.generator.SendText(text); err != nil {
		s.failed.Store(true)
		logger.Warn("failed to send text to speech generator", "error", err)
		return
	}

	if endsSentence(text) {
		if err := s.generator.Mark(); err != nil {
			logger.Debug("failed to mark speech", "error", err)
		}
	}
}

func (s *speechOutput) end() {
	if s == nil || s.failed.Load() {
		return
	}
	if err := s.generator.EndOfText(); err != nil {
		logger.Debug("failed to end speech text", "error", err)
	}
}

// cancel stops the speech and reports whether any was still being produced.
func (s *speechOutput) cancel() bool {
	if s == nil || s.ended.Load() || !s.cancelled.CompareAndSwap(false, true) {
		return false
	}
	s.failed.Store(true)
	if err := s.generator.Cancel(); err != nil {
		logger.Debug("failed to cancel speech generation", "error", err)
	}
	return true
}

// endsSentence reports whether text ends at a sentence boundary. Speech is
// only marked there.
func endsSentence(text string) bool {
	text = strings.TrimRight(text, " \t\n\"')")
	if text == "" {
		return false
	}
	return strings.ContainsRune(".!?。！？…", []rune(text)[len([]rune(text))-1])
}
