package deepgram

import (
	"fmt"
	"os"
	"slices"

	"github.com/koscakluka/ema-agentbridge/core/audio"
)

const defaultSpeakURL = "wss://api.deepgram.com/v1/speak"

type TextToSpeechClient struct {
	apiKey   string
	speakURL string

	voice        deepgramVoice
	encodingInfo audio.EncodingInfo
}

type ClientOption func(*TextToSpeechClient)

// WithDefaultVoice sets the voice used for languages without an Aura voice.
func WithDefaultVoice(voice deepgramVoice) ClientOption {
	return func(c *TextToSpeechClient) { c.voice = voice }
}

func WithSpeakURL(speakURL string) ClientOption {
	return func(c *TextToSpeechClient) { c.speakURL = speakURL }
}

func WithEncoding(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

// NewTextToSpeechClient creates a client. An empty apiKey is read from
// DEEPGRAM_API_KEY.
func NewTextToSpeechClient(apiKey string, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}

	client := &TextToSpeechClient{
		apiKey:       apiKey,
		speakURL:     defaultSpeakURL,
		voice:        defaultVoice,
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(client)
	}

	if !slices.Contains(GetAvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}

	return client, nil
}
