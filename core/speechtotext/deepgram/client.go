package deepgram

import (
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
)

// TranscriptionClient streams audio to Deepgram and reports finalized
// utterances together with the language Deepgram detected.
type TranscriptionClient struct {
	apiKey    string
	listenURL string
	model     string

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time

	utteranceMu sync.Mutex
	utterance   utteranceBuilder
}

type ClientOption func(*TranscriptionClient)

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

// WithListenURL points the client at another listen endpoint.
func WithListenURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) {
		c.listenURL = listenURL
	}
}

// NewTranscriptionClient creates a client. An empty apiKey is read from
// DEEPGRAM_API_KEY.
func NewTranscriptionClient(apiKey string, opts ...ClientOption) *TranscriptionClient {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}

	client := &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: defaultListenURL,
		model:     defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
