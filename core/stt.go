package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
)

type speechToText struct {
	// client stores the configured speech-to-text implementation.
	client SpeechToText
}

func (s *speechToText) set(client SpeechToText) {
	if s != nil {
		s.client = client
	}
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

// Listen starts transcribing audio passed to SendAudio. Every finished
// utterance is handled by HandleUtterance, and the start of user speech
// interrupts the assistant. Without a speech-to-text client Listen does
// nothing.
func (b *Bridge) Listen(ctx context.Context) error {
	if !b.speechToText.isConfigured() {
		return nil
	}
	if b.isClosed() {
		return ErrClosed
	}

	err := b.speechToText.client.Transcribe(ctx,
		speechtotext.WithEncodingInfo(b.encodingInfo),
		speechtotext.WithLanguage(b.recognitionLanguage),
		speechtotext.WithSpeechStartedCallback(func() {
			b.send(events.NewUserSpeechStarted())
			// The user talking over the assistant interrupts it.
			b.Interrupt()
		}),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			if transcript != "" {
				b.send(events.NewUserTranscriptInterim(transcript))
			}
		}),
		speechtotext.WithUtteranceCallback(func(utterance speechtotext.Utterance) {
			if utterance.Language == "" && b.recognitionLanguage != speechtotext.MultiLanguage {
				utterance.Language = b.recognitionLanguage
			}
			if err := b.HandleUtterance(ctx, utterance); err != nil && !errors.Is(err, ErrEmptyInput) {
				logger.Warn("failed to handle utterance", "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}
	return nil
}

func (b *Bridge) SendAudio(audio []byte) error {
	if !b.speechToText.isConfigured() {
		return nil
	}
	return b.speechToText.client.SendAudio(audio)
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ StopStream() error }:
		if err := c.StopStream(); err != nil {
			return fmt.Errorf("failed to stop speech-to-text stream: %w", err)
		}
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	}

	return nil
}
