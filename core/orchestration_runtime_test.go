package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
	"github.com/koscakluka/ema-agentbridge/core/texttospeech"
	"github.com/koscakluka/ema-agentbridge/core/voices"
	"github.com/koscakluka/ema-agentbridge/internal/utils"
)

func TestSubmitStreamsDeltasBetweenMarkers(t *testing.T) {
	client := &runClientStub{
		threadID: "thread-1",
		history:  []agents.Message{{Role: agents.RoleUser, Content: "earlier"}, {Role: agents.RoleAssistant, Content: "reply"}},
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{
				assistantChunk(""),
				assistantChunk("Hello, how can I help you today?"),
				assistantChunk("Hello, how can I help you today? I am here."),
				{Event: "metadata", Data: json.RawMessage(`{"run_id":"remote"}`)},
			}}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithAssistant("agent"))
	defer b.Close()

	if err := b.Submit(context.Background(), "  hi there  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	expectKinds(t, sink, []events.Kind{
		events.KindTurnStarted,
		events.KindAssistantResponseStarted,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseFinal,
		events.KindTurnCompleted,
	})
	if segments := sink.segments(); !slices.Equal(segments, []string{"Hello, how can I help you today?", " I am here."}) {
		t.Fatalf("unexpected segments %q", segments)
	}
	if state := b.State(); state != RunStateCompleted {
		t.Fatalf("expected completed run, got %s", state)
	}
	if threadID := b.ThreadID(); threadID != "thread-1" {
		t.Fatalf("expected thread to be kept, got %q", threadID)
	}

	request := client.lastRequest()
	if request.ThreadID != "thread-1" || request.AssistantID != "agent" || request.StreamMode != agents.StreamModeMessages {
		t.Fatalf("unexpected request %+v", request)
	}
	expectedInput := []agents.Message{
		{Role: agents.RoleUser, Content: "earlier"},
		{Role: agents.RoleAssistant, Content: "reply"},
		{Role: agents.RoleUser, Content: "hi there"},
	}
	if !slices.EqualFunc(request.Input, expectedInput, agents.Message.SameAs) {
		t.Fatalf("expected input %+v, got %+v", expectedInput, request.Input)
	}
}

func TestInterruptEndsResponseOnce(t *testing.T) {
	client := &runClientStub{
		threadID: "thread-1",
		script: func(string) runScript {
			return runScript{
				chunks: []agents.Chunk{assistantChunk("This answer is long enough to be spoken.")},
				block:  true,
			}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))
	defer b.Close()

	if err := b.Submit(context.Background(), "tell me something"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, "first segment", func() bool {
		return sink.count(events.KindAssistantResponseSegment) == 1
	})

	if interrupted := b.Interrupt(); !interrupted {
		t.Fatalf("expected active run to be interrupted")
	}
	if interrupted := b.Interrupt(); interrupted {
		t.Fatalf("expected nothing to interrupt")
	}

	expectKinds(t, sink, []events.Kind{
		events.KindTurnStarted,
		events.KindAssistantResponseStarted,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseFinal,
		events.KindTurnCancelled,
	})
	if state := b.State(); state != RunStateCancelled {
		t.Fatalf("expected cancelled run, got %s", state)
	}
}

func TestSubmitReplacesActiveRun(t *testing.T) {
	client := &runClientStub{
		threadID: "thread-1",
		script: func(input string) runScript {
			if input == "first" {
				return runScript{chunks: []agents.Chunk{assistantChunk("The first answer goes on and on.")}, block: true}
			}
			return runScript{chunks: []agents.Chunk{assistantChunk("The second answer is here.")}}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))
	defer b.Close()

	if err := b.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, "first segment", func() bool {
		return sink.count(events.KindAssistantResponseSegment) == 1
	})

	if err := b.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	expectKinds(t, sink, []events.Kind{
		events.KindTurnStarted,
		events.KindAssistantResponseStarted,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseFinal,
		events.KindTurnCancelled,
		events.KindTurnStarted,
		events.KindAssistantResponseStarted,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseFinal,
		events.KindTurnCompleted,
	})
	if segments := sink.segments(); !slices.Equal(segments, []string{"The first answer goes on and on.", "The second answer is here."}) {
		t.Fatalf("expected the second run to start from an empty response, got %q", segments)
	}

	started := sink.ofKind(events.KindTurnStarted)
	first, second := started[0].(events.TurnStarted), started[1].(events.TurnStarted)
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids")
	}
	if second.ThreadID != "thread-1" {
		t.Fatalf("expected the thread to be reused, got %q", second.ThreadID)
	}
}

func TestFailedRunEndsResponse(t *testing.T) {
	transportErr := &agents.TransportError{Op: "stream run", Err: errors.New("connection reset")}
	client := &runClientStub{
		threadID: "thread-1",
		script: func(string) runScript {
			return runScript{
				chunks: []agents.Chunk{assistantChunk("Partial answer before the drop.")},
				err:    transportErr,
			}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))
	defer b.Close()

	if err := b.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	expectKinds(t, sink, []events.Kind{
		events.KindTurnStarted,
		events.KindAssistantResponseStarted,
		events.KindAssistantResponseSegment,
		events.KindAssistantResponseFinal,
		events.KindTurnFailed,
	})
	failed := sink.ofKind(events.KindTurnFailed)[0].(events.TurnFailed)
	if !strings.Contains(failed.Error, "connection reset") {
		t.Fatalf("expected failure to carry the cause, got %q", failed.Error)
	}
	if state := b.State(); state != RunStateFailed {
		t.Fatalf("expected failed run, got %s", state)
	}
}

func TestFailedRunWithoutResponseHasNoEndMarker(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{err: &agents.TransportError{Op: "stream run", Err: errors.New("refused")}}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))
	defer b.Close()

	if err := b.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	expectKinds(t, sink, []events.Kind{events.KindTurnStarted, events.KindTurnFailed})
}

func TestPanickingRunFails(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{panics: true} }}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))
	defer b.Close()

	if err := b.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	if state := b.State(); state != RunStateFailed {
		t.Fatalf("expected failed run, got %s", state)
	}
}

func TestRunFallsBackWhenThreadOrHistoryIsUnavailable(t *testing.T) {
	testCases := []struct {
		name           string
		client         *runClientStub
		expectedThread string
	}{
		{
			name:   "threadless",
			client: &runClientStub{ensureErr: &agents.TransportError{Op: "ensure thread", Err: errors.New("refused")}},
		},
		{
			name: "no history",
			client: &runClientStub{
				threadID:   "thread-1",
				history:    []agents.Message{{Role: agents.RoleUser, Content: "never sent"}},
				historyErr: agents.ErrThreadHistoryUnavailable,
			},
			expectedThread: "thread-1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.client.script = func(string) runScript {
				return runScript{chunks: []agents.Chunk{{Event: "values", Data: json.RawMessage(`"Hi!"`)}}}
			}
			sink := &recordingSink{}
			b := NewBridge(WithRemoteRunClient(tc.client), WithOutputSink(sink))
			defer b.Close()

			if err := b.Submit(context.Background(), "hello"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b.AwaitCompletion()

			request := tc.client.lastRequest()
			if request.ThreadID != tc.expectedThread {
				t.Fatalf("expected thread %q, got %q", tc.expectedThread, request.ThreadID)
			}
			if !slices.EqualFunc(request.Input, []agents.Message{{Role: agents.RoleUser, Content: "hello"}}, agents.Message.SameAs) {
				t.Fatalf("expected only the new message, got %+v", request.Input)
			}
			if state := b.State(); state != RunStateCompleted {
				t.Fatalf("expected completed run, got %s", state)
			}
			if segments := sink.segments(); !slices.Equal(segments, []string{"Hi!"}) {
				t.Fatalf("unexpected segments %q", segments)
			}
		})
	}
}

func TestSubmitRejectsInput(t *testing.T) {
	if err := NewBridge().Submit(context.Background(), "hello"); !errors.Is(err, ErrNoRemoteRunClient) {
		t.Fatalf("expected ErrNoRemoteRunClient, got %v", err)
	}

	b := NewBridge(WithRemoteRunClient(&runClientStub{script: func(string) runScript { return runScript{} }}))
	if err := b.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("expected repeated close to succeed, got %v", err)
	}
	if err := b.Submit(context.Background(), "hello"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseInterruptsActiveRun(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Long enough text to get emitted.")}, block: true}
		},
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink))

	if err := b.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, "first segment", func() bool {
		return sink.count(events.KindAssistantResponseSegment) == 1
	})

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.count(events.KindAssistantResponseFinal) != 1 || sink.count(events.KindTurnCancelled) != 1 {
		t.Fatalf("expected the run to be closed cleanly, got %v", sink.kinds())
	}
}

func TestRunConfigMergesRuntimeOverrides(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{} }}
	b := NewBridge(
		WithRemoteRunClient(client),
		WithBaseConfig(agents.RunConfig{Configurable: map[string]any{"user_email": "user@example.com"}}),
	)
	defer b.Close()

	b.SetRuntimeConfig(agents.RunConfig{
		Configurable: map[string]any{"model": "fast"},
		Metadata:     map[string]any{"source": "voice"},
	})
	if err := b.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	config := client.lastRequest().Config
	if config.Configurable["user_email"] != "user@example.com" || config.Configurable["model"] != "fast" {
		t.Fatalf("unexpected configurable %v", config.Configurable)
	}
	if config.Metadata["source"] != "voice" {
		t.Fatalf("unexpected metadata %v", config.Metadata)
	}
}

func TestSubmitMessagesPicksLatestUserMessage(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{} }}
	b := NewBridge(WithRemoteRunClient(client))
	defer b.Close()

	if err := b.SubmitMessages(context.Background(), []agents.Message{
		{Role: agents.RoleUser, Content: "first"},
		{Role: agents.RoleAssistant, Content: "answer"},
		{Role: agents.RoleUser, Content: "second"},
		{Role: agents.RoleSystem, Content: "be brief"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	if input := client.lastRequest().Input; input[len(input)-1].Content != "second" {
		t.Fatalf("expected latest user message to be submitted, got %+v", input)
	}

	if err := b.SubmitMessages(context.Background(), []agents.Message{{Role: agents.RoleAssistant, Content: "only me"}}); err != nil {
		t.Fatalf("expected nothing to submit to be a no-op, got %v", err)
	}
	if requests := client.requestCount(); requests != 1 {
		t.Fatalf("expected a single run, got %d", requests)
	}
}

func TestHandleUtteranceArbitratesLanguageAndSwitchesVoice(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Your balance is forty two dollars.")}}
		},
	}
	switcher, err := voices.NewSwitcher(voices.DefaultLanguage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	synthesizer := &synthesizerStub{}
	sink := &recordingSink{}
	b := NewBridge(
		WithRemoteRunClient(client),
		WithOutputSink(sink),
		WithArbitrator(language.NewArbitrator(detectorStub{{Code: "en", Probability: 0.92}})),
		WithSwitcher(switcher),
		WithSynthesizer(synthesizer),
	)
	defer b.Close()

	if err := b.HandleUtterance(context.Background(), speechtotext.Utterance{
		Transcript: "I would like to see my balance",
		Language:   "de",
		Confidence: utils.Ptr(0.99),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	arbitrated := sink.ofKind(events.KindLanguageArbitrated)
	if len(arbitrated) != 1 {
		t.Fatalf("expected one arbitration, got %v", sink.kinds())
	}
	decision := arbitrated[0].(events.LanguageArbitrated)
	if decision.Language != "en-US" || !decision.Overridden || decision.Reason != string(language.ReasonTextVeryConfident) {
		t.Fatalf("unexpected decision %+v", decision)
	}
	switched := sink.ofKind(events.KindVoiceSwitched)
	if len(switched) != 1 || switched[0].(events.VoiceSwitched).LanguageCode != "en-US" {
		t.Fatalf("expected a switch to the english voice, got %v", switched)
	}
	if b.Language() != "en-US" {
		t.Fatalf("expected session language en-US, got %q", b.Language())
	}

	voice, text, ended := synthesizer.generated()
	if voice == nil || voice.LanguageCode != "en-US" {
		t.Fatalf("expected speech in english, got %+v", voice)
	}
	if text != "Your balance is forty two dollars." || !ended {
		t.Fatalf("unexpected speech text %q (ended %t)", text, ended)
	}
}

func TestHandleUtteranceWithoutArbitratorKeepsAcousticLanguage(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{} }}
	switcher, err := voices.NewSwitcher(voices.DefaultLanguage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithSwitcher(switcher))
	defer b.Close()

	for range 2 {
		if err := b.HandleUtterance(context.Background(), speechtotext.Utterance{Transcript: "hola, ¿cómo estás?", Language: "es"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.AwaitCompletion()
	}

	if b.Language() != "es-US" {
		t.Fatalf("expected acoustic language es-US, got %q", b.Language())
	}
	if switches := sink.count(events.KindVoiceSwitched); switches != 1 {
		t.Fatalf("expected a single voice switch, got %d", switches)
	}
	if err := b.HandleUtterance(context.Background(), speechtotext.Utterance{Transcript: "  "}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestListenSubmitsUtterances(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{} }}
	stt := &speechToTextStub{}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithSpeechToText(stt))
	defer b.Close()

	if err := b.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.options.Language != speechtotext.MultiLanguage {
		t.Fatalf("expected multilingual recognition, got %q", stt.options.Language)
	}

	stt.options.SpeechStartedCallback()
	stt.options.UtteranceCallback(speechtotext.Utterance{Transcript: "bonjour à tous", Language: "fr"})
	b.AwaitCompletion()

	if sink.count(events.KindUserSpeechStarted) != 1 || sink.count(events.KindUserTranscriptFinal) != 1 {
		t.Fatalf("unexpected events %v", sink.kinds())
	}
	if input := client.lastRequest().Input; input[len(input)-1].Content != "bonjour à tous" {
		t.Fatalf("expected transcript to be submitted, got %+v", input)
	}
}

func TestListenInterimTranscriptsAndBargeIn(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Let me think about that for a while.")}, block: true}
		},
	}
	stt := &speechToTextStub{}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithSpeechToText(stt))
	defer b.Close()

	if err := b.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Submit(context.Background(), "what is the meaning of life?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, "first segment", func() bool {
		return sink.count(events.KindAssistantResponseSegment) == 1
	})

	stt.options.InterimTranscriptionCallback("")
	stt.options.InterimTranscriptionCallback("wait")
	stt.options.SpeechStartedCallback()

	if state := b.State(); state != RunStateCancelled {
		t.Fatalf("expected user speech to cancel the run, got %s", state)
	}
	interim := sink.ofKind(events.KindUserTranscriptInterim)
	if len(interim) != 1 || interim[0].(events.UserTranscriptInterim).Transcript != "wait" {
		t.Fatalf("expected a single interim transcript, got %v", interim)
	}
}

func TestListenUsesPinnedLanguage(t *testing.T) {
	client := &runClientStub{script: func(string) runScript { return runScript{} }}
	stt := &speechToTextStub{}
	sink := &recordingSink{}
	b := NewBridge(
		WithRemoteRunClient(client),
		WithOutputSink(sink),
		WithSpeechToText(stt),
		WithRecognitionLanguage("de-DE"),
	)
	defer b.Close()

	if err := b.Listen(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.options.Language != "de-DE" {
		t.Fatalf("expected pinned recognition language, got %q", stt.options.Language)
	}

	stt.options.UtteranceCallback(speechtotext.Utterance{Transcript: "wie spät ist es?"})
	b.AwaitCompletion()

	if b.Language() != "de-DE" {
		t.Fatalf("expected session language de-DE, got %q", b.Language())
	}
	final := sink.ofKind(events.KindUserTranscriptFinal)
	if len(final) != 1 || final[0].(events.UserTranscriptFinal).Language != "de-DE" {
		t.Fatalf("expected the pinned language on the transcript, got %v", final)
	}
}

func TestInterruptCancelsSpeechOfCompletedRun(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Here is a short answer.")}}
		},
	}
	synthesizer := &synthesizerStub{}
	b := NewBridge(WithRemoteRunClient(client), WithSynthesizer(synthesizer))
	defer b.Close()

	if err := b.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()
	if state := b.State(); state != RunStateCompleted {
		t.Fatalf("expected completed run, got %s", state)
	}

	generator, _ := synthesizer.latest()
	if _, cancels := generator.counts(); cancels != 0 {
		t.Fatalf("expected speech to keep playing after the run, got %d cancels", cancels)
	}
	if interrupted := b.Interrupt(); !interrupted {
		t.Fatalf("expected playing speech to be interrupted")
	}
	if _, cancels := generator.counts(); cancels != 1 {
		t.Fatalf("expected speech to be cancelled once, got %d", cancels)
	}
	if interrupted := b.Interrupt(); interrupted {
		t.Fatalf("expected nothing left to interrupt")
	}
}

func TestInterruptIgnoresFinishedSpeech(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Done.")}}
		},
	}
	synthesizer := &synthesizerStub{}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithSynthesizer(synthesizer))
	defer b.Close()

	if err := b.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	generator, options := synthesizer.latest()
	options.SpeechEndedCallback()

	if interrupted := b.Interrupt(); interrupted {
		t.Fatalf("expected finished speech not to be interrupted")
	}
	if _, cancels := generator.counts(); cancels != 0 {
		t.Fatalf("expected no cancels, got %d", cancels)
	}
	if sink.count(events.KindAssistantSpeechFinal) != 1 {
		t.Fatalf("expected the end of speech to be reported")
	}
}

func TestSubmitCancelsPreviousSpeech(t *testing.T) {
	client := &runClientStub{
		script: func(input string) runScript {
			return runScript{chunks: []agents.Chunk{assistantChunk("Answer to " + input + ".")}}
		},
	}
	synthesizer := &synthesizerStub{}
	b := NewBridge(WithRemoteRunClient(client), WithSynthesizer(synthesizer))

	if err := b.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()
	first, _ := synthesizer.latest()

	if err := b.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()
	second, _ := synthesizer.latest()

	if _, cancels := first.counts(); cancels != 1 {
		t.Fatalf("expected the first speech to be cancelled, got %d cancels", cancels)
	}
	if _, cancels := second.counts(); cancels != 0 {
		t.Fatalf("expected the second speech to keep playing, got %d cancels", cancels)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, cancels := second.counts(); cancels != 1 {
		t.Fatalf("expected close to cancel speech, got %d cancels", cancels)
	}
}

func TestSpeechIsMarkedAtSentenceEnds(t *testing.T) {
	client := &runClientStub{
		script: func(string) runScript {
			return runScript{chunks: []agents.Chunk{
				assistantChunk("Hello, how can I help you today?"),
				assistantChunk("Hello, how can I help you today? I am here"),
			}}
		},
	}
	synthesizer := &synthesizerStub{}
	sink := &recordingSink{}
	b := NewBridge(WithRemoteRunClient(client), WithOutputSink(sink), WithSynthesizer(synthesizer))
	defer b.Close()

	if err := b.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.AwaitCompletion()

	generator, options := synthesizer.latest()
	if marks, _ := generator.counts(); marks != 1 {
		t.Fatalf("expected one mark at the sentence end, got %d", marks)
	}

	options.SpeechMarkCallback("")
	options.SpeechMarkCallback("Hello, how can I help you today?")
	marks := sink.ofKind(events.KindAssistantSpeechMark)
	if len(marks) != 1 {
		t.Fatalf("expected one speech mark event, got %d", len(marks))
	}
	started := sink.ofKind(events.KindAssistantResponseStarted)
	mark := marks[0].(events.AssistantSpeechMark)
	if mark.Text != "Hello, how can I help you today?" || mark.RunID != started[0].(events.AssistantResponseStarted).RunID {
		t.Fatalf("unexpected speech mark %+v", mark)
	}
}

func TestEndsSentence(t *testing.T) {
	testCases := []struct {
		text     string
		expected bool
	}{
		{text: "", expected: false},
		{text: "Hello", expected: false},
		{text: "Hello.", expected: true},
		{text: "Really?  ", expected: true},
		{text: `He said "stop!"`, expected: true},
		{text: "(see above.)", expected: true},
		{text: "你好。", expected: true},
		{text: "one, two,", expected: false},
	}

	for _, tc := range testCases {
		if got := endsSentence(tc.text); got != tc.expected {
			t.Errorf("endsSentence(%q) = %t, expected %t", tc.text, got, tc.expected)
		}
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

func expectKinds(t *testing.T, sink *recordingSink, expected []events.Kind) {
	t.Helper()
	if kinds := sink.kinds(); !slices.Equal(kinds, expected) {
		t.Fatalf("expected events %v, got %v", expected, kinds)
	}
}

func assistantChunk(content string) agents.Chunk {
	encoded, _ := json.Marshal(content)
	return agents.Chunk{
		Event: "messages/partial",
		Data:  json.RawMessage(`[{"type":"ai","content":` + string(encoded) + `}]`),
	}
}

type runScript struct {
	chunks []agents.Chunk
	err    error
	// block keeps the stream open until the run is cancelled and then
	// offers one more chunk.
	block  bool
	panics bool
}

type runClientStub struct {
	mu       sync.Mutex
	requests []agents.RunRequest

	threadID   string
	ensureErr  error
	history    []agents.Message
	historyErr error

	script func(input string) runScript
}

func (s *runClientStub) OpenRun(ctx context.Context, req agents.RunRequest) iter.Seq2[agents.Chunk, error] {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	script := s.script(req.Input[len(req.Input)-1].Content)
	return func(yield func(agents.Chunk, error) bool) {
		if script.panics {
			panic("stream exploded")
		}
		for _, chunk := range script.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if script.err != nil {
			yield(agents.Chunk{}, script.err)
			return
		}
		if script.block {
			<-ctx.Done()
			yield(assistantChunk("Late text that must never reach the sink."), nil)
		}
	}
}

func (s *runClientStub) EnsureThread(_ context.Context, threadID string) (string, error) {
	if s.ensureErr != nil {
		return "", s.ensureErr
	}
	if threadID != "" {
		return threadID, nil
	}
	return s.threadID, nil
}

func (s *runClientStub) ThreadHistory(context.Context, string) ([]agents.Message, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return slices.Clone(s.history), nil
}

func (s *runClientStub) lastRequest() agents.RunRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *runClientStub) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) snapshot() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// kinds only lists run events. Speech frames arrive from the synthesizer's
// goroutine and utterance events are checked separately.
func (s *recordingSink) kinds() []events.Kind {
	var kinds []events.Kind
	for _, event := range s.snapshot() {
		switch event.Kind().Namespace() {
		case events.NamespaceAssistantResponse, events.NamespaceToolCall, events.NamespaceTurnState:
			kinds = append(kinds, event.Kind())
		}
	}
	return kinds
}

func (s *recordingSink) ofKind(kind events.Kind) []events.Event {
	var matching []events.Event
	for _, event := range s.snapshot() {
		if event.Kind() == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

func (s *recordingSink) count(kind events.Kind) int {
	return len(s.ofKind(kind))
}

func (s *recordingSink) segments() []string {
	var segments []string
	for _, event := range s.ofKind(events.KindAssistantResponseSegment) {
		segments = append(segments, event.(events.AssistantResponseSegment).Segment)
	}
	return segments
}

type detectorStub []language.Candidate

func (d detectorStub) Detect(string) ([]language.Candidate, error) {
	return d, nil
}

type synthesizerStub struct {
	mu         sync.Mutex
	voice      *voices.Config
	options    texttospeech.TextToSpeechOptions
	generators []*generatorStub
}

func (s *synthesizerStub) NewSpeechGenerator(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	options := texttospeech.TextToSpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = options.Voice
	s.options = options
	generator := &generatorStub{}
	s.generators = append(s.generators, generator)
	return generator, nil
}

// latest returns the most recent generator and the options it was created
// with.
func (s *synthesizerStub) latest() (*generatorStub, texttospeech.TextToSpeechOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.generators) == 0 {
		return nil, s.options
	}
	return s.generators[len(s.generators)-1], s.options
}

func (s *synthesizerStub) generated() (*voices.Config, string, bool) {
	s.mu.Lock()
	voice := s.voice
	s.mu.Unlock()

	generator, _ := s.latest()
	if generator == nil {
		return voice, "", false
	}
	generator.mu.Lock()
	defer generator.mu.Unlock()
	return voice, generator.text.String(), generator.ended
}

type generatorStub struct {
	mu      sync.Mutex
	text    strings.Builder
	ended   bool
	marks   int
	cancels int
}

func (g *generatorStub) SendText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text.WriteString(text)
	return nil
}

func (g *generatorStub) Mark() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.marks++
	return nil
}

func (g *generatorStub) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	return nil
}

func (g *generatorStub) Close() error { return nil }

func (g *generatorStub) EndOfText() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ended = true
	return nil
}

func (g *generatorStub) counts() (marks, cancels int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.marks, g.cancels
}

type speechToTextStub struct {
	options speechtotext.TranscriptionOptions
}

func (s *speechToTextStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	for _, opt := range opts {
		opt(&s.options)
	}
	return nil
}

func (s *speechToTextStub) SendAudio([]byte) error { return nil }
