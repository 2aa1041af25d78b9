package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-agentbridge/core/texttospeech"
)

type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	// textBuffer holds the text between marks. The first entry is the text
	// Deepgram is currently speaking, the rest waits for its Flushed answer.
	textBuffer   []string
	textBufferMu sync.Mutex

	options texttospeech.TextToSpeechOptions
	voice   deepgramVoice

	textComplete bool
	cancelled    bool
	closed       bool
}

var _ texttospeech.SpeechGenerator = (*streamingRequest)(nil)

func (c *TextToSpeechClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	req := &streamingRequest{
		options: texttospeech.TextToSpeechOptions{
			SpeechAudioCallback: func([]byte) {},
			SpeechMarkCallback:  func(string) {},
			SpeechEndedCallback: func() {},
			ErrorCallback:       func(error) {},
			EncodingInfo:        c.encodingInfo,
		},
	}

	for _, opt := range opts {
		opt(&req.options)
	}
	req.voice = voiceFor(req.options.Voice, c.voice)

	var err error
	if req.ws, err = c.connectWebsocket(ctx, req.voice, req.options); err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	go req.processIncomingMessages()

	return req, nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice, options texttospeech.TextToSpeechOptions) (*websocket.Conn, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	speakURL, err := url.Parse(c.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	urlValues := speakURL.Query()
	urlValues.Set("encoding", options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *streamingRequest) processIncomingMessages() {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !r.isClosed() {
				logger.Warn("deepgram speak websocket read failed", "error", err)
				r.options.ErrorCallback(err)
			}
			if err := r.Cancel(); err != nil {
				_ = r.Close()
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.onFlushed()
			case "Warning":
				logger.Warn("deepgram speak warning", "message", string(msg))
			}
		}
	}
}

func (r *streamingRequest) onFlushed() {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	// notify the user we have reached the mark
	if len(r.textBuffer) > 0 {
		r.options.SpeechMarkCallback(r.textBuffer[0])
		r.textBuffer = r.textBuffer[1:]
	}

	// nothing left to process, notify the user of the end
	if len(r.textBuffer) == 0 && r.isTextComplete() {
		r.options.SpeechEndedCallback()
		_ = r.Close()
		return
	}

	// send the next text if there is any
	if len(r.textBuffer) > 0 {
		if err := r.sendWebsocketMessage(sendTextMsg(r.textBuffer[0])); err != nil {
			logger.Warn("failed to speak deepgram text", "error", err)
		}
	}
	// flush if there is even more text
	if len(r.textBuffer) > 1 {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			logger.Warn("failed to flush deepgram buffer", "error", err)
		}
	}
}

func (r *streamingRequest) checkWritable(allowCompleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return fmt.Errorf("streaming request closed")
	case r.cancelled:
		return fmt.Errorf("streaming request cancelled")
	case r.textComplete && !allowCompleted:
		return fmt.Errorf("streaming request text already completed")
	}
	return nil
}

func (r *streamingRequest) SendText(text string) error {
	if err := r.checkWritable(false); err != nil {
		return err
	}

	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if len(r.textBuffer) == 0 {
		r.textBuffer = append(r.textBuffer, "")
	}

	if len(r.textBuffer) == 1 {
		if err := r.sendWebsocketMessage(sendTextMsg(text)); err != nil {
			return fmt.Errorf("failed to send websocket send text message: %w", err)
		}
	}
	r.textBuffer[len(r.textBuffer)-1] += text
	return nil
}

func (r *streamingRequest) Mark() error {
	if err := r.checkWritable(false); err != nil {
		return err
	}

	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if len(r.textBuffer) == 1 {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}

	// NOTE: Deepgram sometimes drops text that is passed after a flush unless
	// there is some kind of break. This allows us to send the text after we
	// get the flush confirmation
	r.textBuffer = append(r.textBuffer, "")

	return nil
}

func (r *streamingRequest) EndOfText() error {
	if err := r.checkWritable(true); err != nil {
		return err
	}

	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	r.mu.Lock()
	r.textComplete = true
	r.mu.Unlock()

	switch {
	case len(r.textBuffer) == 0, len(r.textBuffer) == 1 && r.textBuffer[0] == "":
		r.textBuffer = nil
		r.options.SpeechEndedCallback()
		_ = r.Close()
	case len(r.textBuffer) == 1:
		// Flushing the last text produces the Flushed answer that ends the
		// request.
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}

	return nil
}

func (r *streamingRequest) Cancel() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("streaming request closed")
	}
	r.cancelled = true
	r.mu.Unlock()

	if err := r.sendWebsocketMessage(clearMsg); err != nil {
		_ = r.Close()
		return fmt.Errorf("failed to send websocket clear message: %w", err)
	}

	_ = r.Close()
	return nil
}

func (r *streamingRequest) Close() error {
	sendErr := r.sendWebsocketMessage(closeMsg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if closeErr := r.ws.Close(); closeErr != nil && sendErr != nil {
		return fmt.Errorf("failed to close websocket: %w", errors.Join(sendErr, closeErr))
	}
	return nil
}

func (r *streamingRequest) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || r.cancelled
}

func (r *streamingRequest) isTextComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textComplete
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func sendTextMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

func (r *streamingRequest) sendWebsocketMessage(msg websocketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
