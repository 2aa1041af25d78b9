package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/audio"
	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
	"github.com/koscakluka/ema-agentbridge/core/streaming"
	"github.com/koscakluka/ema-agentbridge/core/voices"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrClosed            = errors.New("bridge closed")
	ErrEmptyInput        = errors.New("empty input")
	ErrNoRemoteRunClient = errors.New("no remote run client configured")
)

// Bridge connects one session (usually one websocket connection) to a
// remote agent runtime. At most one run is active at a time: submitting new
// input cancels the active run and waits for it to finish before the next
// one starts.
type Bridge struct {
	client      agents.RemoteRunClient
	sink        OutputSink
	arbitrator  *language.Arbitrator
	switcher    *voices.Switcher
	synthesizer SpeechSynthesizer

	speechToText        speechToText
	recognitionLanguage string
	encodingInfo        audio.EncodingInfo
	baseConfig          agents.RunConfig
	baseContext         context.Context

	// session is only touched by the active run, or under slotMu while no
	// run is active.
	session *streaming.Session

	slotMu sync.Mutex
	active *activeRun
	closed bool

	// speech is the latest response's speech. It keeps playing after its
	// run has completed.
	speechMu sync.Mutex
	speech   *speechOutput

	configMu      sync.RWMutex
	runtimeConfig *agents.RunConfig

	stateMu  sync.RWMutex
	state    RunState
	language string

	runs metric.Int64Counter
}

func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		sink:                discardSink{},
		encodingInfo:        audio.GetDefaultEncodingInfo(),
		recognitionLanguage: speechtotext.MultiLanguage,
		baseContext:         context.Background(),
		session:             streaming.NewSession("", agents.StreamModeMessages),
	}
	for _, opt := range opts {
		opt(b)
	}

	runs, err := meter.Int64Counter("agentbridge.runs",
		metric.WithDescription("Agent runs by terminal state"),
	)
	if err != nil {
		logger.Warn("failed to create runs counter", "error", err)
	}
	b.runs = runs

	return b
}

// Submit starts a run for text. An active run is cancelled first and Submit
// waits until it has finished.
func (b *Bridge) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if b.client == nil {
		return ErrNoRemoteRunClient
	}

	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if b.stopActiveRun() {
		logger.Info("replacing active run")
	}

	runCtx, cancel := context.WithCancel(b.baseContext)
	run := &activeRun{
		id:     uuid.NewString(),
		input:  text,
		cancel: cancel,
		done:   make(chan struct{}),
		link:   trace.LinkFromContext(ctx),
	}
	b.active = run
	b.session.Reset()
	b.setState(RunStateRunning)

	go b.runWorker(runCtx, run)
	return nil
}

// SubmitMessages submits the latest user message, or the latest system
// message when there is no user message.
func (b *Bridge) SubmitMessages(ctx context.Context, messages []agents.Message) error {
	if text, ok := latestInput(messages); ok {
		return b.Submit(ctx, text)
	}

	logger.Info("no user or system message to submit", "messages", len(messages))
	return nil
}

func latestInput(messages []agents.Message) (string, bool) {
	for _, role := range []agents.Role{agents.RoleUser, agents.RoleSystem} {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == role && strings.TrimSpace(messages[i].Content) != "" {
				return messages[i].Content, true
			}
		}
	}
	return "", false
}

// Interrupt cancels the active run and its speech without starting another
// run, and waits for the run to finish. It reports whether a run or speech
// was interrupted.
func (b *Bridge) Interrupt() bool {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	return b.stopActiveRun()
}

// stopActiveRun cancels the active run and the speech still playing for
// the latest response. It must be called with slotMu held.
func (b *Bridge) stopActiveRun() bool {
	stopped := false
	if run := b.active; run != nil && !run.finished() {
		run.cancel()
		<-run.done
		stopped = true
	}
	if b.stopSpeech() {
		stopped = true
	}
	return stopped
}

// AwaitCompletion blocks until the active run, if any, has finished.
func (b *Bridge) AwaitCompletion() {
	b.slotMu.Lock()
	run := b.active
	b.slotMu.Unlock()

	if run != nil {
		<-run.done
	}
}

func (b *Bridge) State() RunState {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Bridge) setState(state RunState) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.state = state
}

// Language returns the language decided for the latest utterance.
func (b *Bridge) Language() string {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.language
}

// ThreadID returns the thread of the session. It is only stable while no
// run is active.
func (b *Bridge) ThreadID() string {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	if b.active != nil && !b.active.finished() {
		return ""
	}
	return b.session.ThreadID
}

// SetRuntimeConfig replaces the runtime overrides merged over the base
// config for the following runs.
func (b *Bridge) SetRuntimeConfig(config agents.RunConfig) {
	b.configMu.Lock()
	defer b.configMu.Unlock()
	b.runtimeConfig = &config
}

func (b *Bridge) runConfig() (agents.RunConfig, error) {
	b.configMu.RLock()
	defer b.configMu.RUnlock()
	return agents.MergeConfig(b.baseConfig, b.runtimeConfig)
}

// Close interrupts the active run and rejects all further input. It is
// safe to call more than once.
func (b *Bridge) Close() error {
	b.slotMu.Lock()
	if b.closed {
		b.slotMu.Unlock()
		return nil
	}
	b.closed = true
	b.stopActiveRun()
	b.slotMu.Unlock()

	if err := b.speechToText.Close(b.baseContext); err != nil {
		return fmt.Errorf("failed to close bridge: %w", err)
	}
	return nil
}

func (b *Bridge) isClosed() bool {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	return b.closed
}

func (b *Bridge) send(event events.Event) {
	if err := b.sink.Send(event); err != nil {
		logger.Warn("failed to send event", "kind", event.Kind(), "error", err)
	}
}
