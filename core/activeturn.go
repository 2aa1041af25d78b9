package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/events"
	"github.com/koscakluka/ema-agentbridge/core/streaming"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// activeRun is the single slot a bridge keeps for its in-flight run.
type activeRun struct {
	id    string
	input string

	cancel context.CancelFunc
	done   chan struct{}
	link   trace.Link

	// speech is only touched by the run goroutine.
	speech *speechOutput
}

func (r *activeRun) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (b *Bridge) runWorker(ctx context.Context, run *activeRun) {
	defer close(run.done)
	defer run.cancel()

	ctx, span := tracer.Start(ctx, "stream agent run",
		trace.WithLinks(run.link),
		trace.WithAttributes(
			attribute.String("run.id", run.id),
			attribute.String("assistant.id", b.session.AssistantID),
		),
	)
	defer span.End()
	startedAt := time.Now()

	err := panicSafeNamedWorker("agent run", func(ctx context.Context) error {
		return b.streamRun(ctx, run)
	})(ctx)
	cancelled := ctx.Err() != nil

	// The end marker goes out before the terminal event, whatever happened.
	b.finishResponse(run, cancelled)

	var state RunState
	switch {
	case cancelled:
		state = RunStateCancelled
		b.send(events.NewTurnCancelled(run.id))
		logger.Info("agent run cancelled", "run_id", run.id)
	case err != nil:
		state = RunStateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.send(events.NewTurnFailed(run.id, err))
		logger.Error("agent run failed", "run_id", run.id, "error", err)
	default:
		state = RunStateCompleted
		b.send(events.NewTurnCompleted(run.id))
	}

	span.SetAttributes(
		attribute.String("run.state", state.String()),
		attribute.StringSlice("run.tools", b.session.ToolsSeen()),
		attribute.Float64("run.duration", time.Since(startedAt).Seconds()),
	)
	if b.runs != nil {
		b.runs.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("state", state.String())))
	}
	b.setState(state)
}

func (b *Bridge) streamRun(ctx context.Context, run *activeRun) error {
	session := b.session

	threadID, err := b.client.EnsureThread(ctx, session.ThreadID)
	switch {
	case ctx.Err() != nil:
		return nil
	case err != nil:
		logger.Warn("failed to ensure thread, running threadless", "run_id", run.id, "error", err)
		threadID = ""
	default:
		session.ThreadID = threadID
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("thread.id", threadID))

	var history []agents.Message
	if threadID != "" {
		if history, err = b.client.ThreadHistory(ctx, threadID); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("continuing without thread history", "thread_id", threadID, "error", err)
			history = nil
		}
	}

	config, err := b.runConfig()
	if err != nil {
		return fmt.Errorf("failed to build run config: %w", err)
	}

	b.send(events.NewTurnStarted(run.id, threadID))

	request := agents.RunRequest{
		ThreadID:    threadID,
		AssistantID: session.AssistantID,
		Input:       append(history, agents.Message{Role: agents.RoleUser, Content: run.input}),
		StreamMode:  session.StreamMode,
		Config:      config,
	}
	for chunk, err := range b.client.OpenRun(ctx, request) {
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("agent run stream failed: %w", err)
		}

		outputs, newTools := session.Handle(chunk)
		for _, name := range newTools {
			b.send(events.NewToolCallStarted(run.id, name))
		}
		for _, output := range outputs {
			if ctx.Err() != nil {
				return nil
			}
			b.emit(ctx, run, output)
		}
	}

	if ctx.Err() == nil && session.EmittedText() == "" {
		logger.Debug("agent run produced no text", "run_id", run.id, "tools", session.ToolsSeen())
	}
	return nil
}

func (b *Bridge) emit(ctx context.Context, run *activeRun, output streaming.Output) {
	switch output.Kind {
	case streaming.OutputStart:
		b.send(events.NewAssistantResponseStarted(run.id))
		run.speech = b.startSpeech(ctx, run.id)
	case streaming.OutputDelta:
		text := streaming.SanitizeForSpeech(output.Text)
		b.send(events.NewAssistantResponseSegment(run.id, text))
		run.speech.sendText(text)
	case streaming.OutputEnd:
		b.send(events.NewAssistantResponseFinal(run.id))
		run.speech.end()
	}
}

// finishResponse closes the response of run. Speech of a cancelled run is
// dropped, otherwise it is allowed to finish.
func (b *Bridge) finishResponse(run *activeRun, cancelled bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("failed to finish response", "run_id", run.id, "panic", recovered)
		}
	}()

	if cancelled {
		run.speech.cancel()
	}
	for _, output := range b.session.Finish() {
		if output.Kind == streaming.OutputEnd {
			b.send(events.NewAssistantResponseFinal(run.id))
			run.speech.end()
		}
	}
}
