package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-agentbridge/core"
	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/agents/langgraph"
	"github.com/koscakluka/ema-agentbridge/core/audio"
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/sinks"
	sttdeepgram "github.com/koscakluka/ema-agentbridge/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-agentbridge/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-agentbridge/core/voices"
	"github.com/koscakluka/ema-agentbridge/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type server struct {
	cfg      config.Config
	client   *langgraph.Client
	detector language.TextDetector
	upgrader websocket.Upgrader

	// sessions is cancelled when the server shuts down. Hijacked websocket
	// connections are not tracked by http.Server.
	sessions context.Context
}

func newServer(sessions context.Context, cfg config.Config, detector language.TextDetector) *server {
	return &server{
		cfg:      cfg,
		sessions: sessions,
		client: langgraph.NewClient(cfg.LangGraph.BaseURL,
			langgraph.WithAuthToken(cfg.LangGraph.AuthToken),
			langgraph.WithDebugStream(cfg.LangGraph.DebugStream),
			langgraph.WithRequestTimeout(cfg.LangGraph.Timeout),
		),
		detector: detector,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /assistants", s.handleAssistants)
	mux.HandleFunc("GET /ws", s.handleWebsocket)

	return otelhttp.NewHandler(mux, "agentbridge",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAssistants(w http.ResponseWriter, r *http.Request) {
	assistants, err := s.client.ListAssistants(r.Context(), langgraph.ListAssistantsOptions{
		DisplayNames: s.cfg.LangGraph.DisplayNames,
		Exclude:      s.cfg.LangGraph.ExcludeAssistants,
	})
	if err != nil {
		logger.Warn("failed to list assistants", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assistants": assistants})
}

// clientMessage is a text frame sent by a websocket client. Binary frames
// carry input audio.
type clientMessage struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Messages []agents.Message  `json:"messages,omitempty"`
	Config   *agents.RunConfig `json:"config,omitempty"`
}

func (s *server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.sessions)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sink := sinks.NewWebsocketSink(conn)
	defer sink.Close()

	bridge, err := s.newBridge(ctx, r, sink)
	if err != nil {
		logger.Error("failed to set up session", "error", err)
		return
	}
	defer bridge.Close()

	if err := bridge.Listen(ctx); err != nil {
		logger.Warn("speech input unavailable", "error", err)
	}

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := bridge.SendAudio(payload); err != nil {
				logger.Debug("failed to forward audio", "error", err)
			}
		case websocket.TextMessage:
			if err := s.handleClientMessage(ctx, bridge, payload); err != nil {
				logger.Warn("failed to handle client message", "error", err)
			}
		}
	}
}

func (s *server) newBridge(ctx context.Context, r *http.Request, sink orchestration.OutputSink) (*orchestration.Bridge, error) {
	query := r.URL.Query()
	recognition, voice := sessionLanguage(query, s.cfg.Language.Default)
	switcher, err := voices.NewSwitcher(voice)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice switcher: %w", err)
	}

	assistant := s.cfg.LangGraph.Assistant
	if requested := strings.TrimSpace(query.Get("assistant_id")); requested != "" {
		assistant = requested
	}
	mode, err := agents.ParseStreamMode(s.cfg.LangGraph.StreamMode)
	if err != nil {
		return nil, err
	}
	encoding, err := audio.ParseEncodingInfo(query.Get("encoding"), query.Get("sample_rate"))
	if err != nil {
		return nil, err
	}

	opts := []orchestration.BridgeOption{
		orchestration.WithBaseContext(ctx),
		orchestration.WithRemoteRunClient(s.client),
		orchestration.WithOutputSink(sink),
		orchestration.WithSwitcher(switcher),
		orchestration.WithAssistant(assistant),
		orchestration.WithStreamMode(mode),
		orchestration.WithThreadID(query.Get("thread_id")),
		orchestration.WithEncodingInfo(encoding),
		orchestration.WithRecognitionLanguage(recognition),
		orchestration.WithBaseConfig(s.cfg.RunConfig()),
	}
	if s.cfg.Language.ValidateWithText {
		opts = append(opts, orchestration.WithArbitrator(language.NewArbitrator(s.detector)))
	}

	if apiKey := s.cfg.Deepgram.APIKey; apiKey != "" {
		var sttOptions []sttdeepgram.ClientOption
		if s.cfg.Deepgram.ListenModel != "" {
			sttOptions = append(sttOptions, sttdeepgram.WithModel(s.cfg.Deepgram.ListenModel))
		}
		synthesizer, err := ttsdeepgram.NewTextToSpeechClient(apiKey, ttsdeepgram.WithEncoding(encoding))
		if err != nil {
			return nil, fmt.Errorf("failed to create speech synthesizer: %w", err)
		}
		opts = append(opts,
			orchestration.WithSpeechToText(sttdeepgram.NewTranscriptionClient(apiKey, sttOptions...)),
			orchestration.WithSynthesizer(synthesizer),
		)
	}

	return orchestration.NewBridge(opts...), nil
}

// sessionLanguage reads the language query parameter. A pinned language is
// used for recognition, and the session starts speaking it when a voice
// exists for it.
func sessionLanguage(query url.Values, defaultVoice string) (recognition, voice string) {
	recognition = strings.TrimSpace(query.Get("language"))
	if pinned, ok := voices.Lookup(recognition); ok {
		return recognition, pinned.LanguageCode
	}
	return recognition, defaultVoice
}

func (s *server) handleClientMessage(ctx context.Context, bridge *orchestration.Bridge, payload []byte) error {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode client message: %w", err)
	}

	switch msg.Type {
	case "text", "input":
		if err := bridge.Submit(ctx, msg.Text); err != nil && !errors.Is(err, orchestration.ErrEmptyInput) {
			return err
		}
	case "messages":
		return bridge.SubmitMessages(ctx, msg.Messages)
	case "interrupt":
		bridge.Interrupt()
	case "config":
		if msg.Config == nil {
			return errors.New("config message without config")
		}
		bridge.SetRuntimeConfig(*msg.Config)
	default:
		return fmt.Errorf("unknown client message type %q", msg.Type)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}
