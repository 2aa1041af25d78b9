package langgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/koscakluka/ema-agentbridge/core/agents"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	eventEnd   = "end"
	eventError = "error"
)

type runRequestBody struct {
	AssistantID string           `json:"assistant_id"`
	Input       []agents.Message `json:"input"`
	StreamMode  string           `json:"stream_mode"`
	Config      agents.RunConfig `json:"config"`
}

// OpenRun streams a run. A thread-bound run goes to
// /threads/{id}/runs/stream, a threadless one to /runs/stream.
func (c *Client) OpenRun(ctx context.Context, req agents.RunRequest) iter.Seq2[agents.Chunk, error] {
	requestToFirstChunkTime := time.Time{}
	setRequestToFirstChunkTime := func(span trace.Span) {
		if requestToFirstChunkTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_chunk_time", time.Since(requestToFirstChunkTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstChunkTime = time.Time{}
	}

	return func(yield func(agents.Chunk, error) bool) {
		ctx, span := tracer.Start(ctx, "open run stream")
		defer span.End()

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(agents.Chunk{}, err)
		}

		streamMode := req.StreamMode
		if streamMode == "" {
			streamMode = agents.StreamModeMessages
		}
		span.SetAttributes(
			attribute.String("request.assistant_id", req.AssistantID),
			attribute.String("request.thread_id", req.ThreadID),
			attribute.String("request.stream_mode", string(streamMode)),
			attribute.Int("request.input_messages", len(req.Input)),
		)

		path := "/runs/stream"
		if req.ThreadID != "" {
			path = "/threads/" + url.PathEscape(req.ThreadID) + "/runs/stream"
		}

		httpReq, err := c.newRequest(ctx, http.MethodPost, path, runRequestBody{
			AssistantID: req.AssistantID,
			Input:       req.Input,
			StreamMode:  string(streamMode),
			Config:      req.Config,
		})
		if err != nil {
			fail(err)
			return
		}
		httpReq.Header.Set("Accept", "text/event-stream")
		span.SetAttributes(attribute.String("request.url", httpReq.URL.String()))

		requestToFirstChunkTime = time.Now()
		span.AddEvent("request started")
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			fail(&agents.TransportError{Op: "open run stream", Err: err})
			return
		}

		stream := newSSEReader(resp.Body)
		defer stream.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if err := checkStatus(resp); err != nil {
			fail(&agents.TransportError{Op: "open run stream", Err: err})
			return
		}

		chunks := 0
		defer func() { span.SetAttributes(attribute.Int("response.chunks", chunks)) }()
		for {
			event, data, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return
			} else if err != nil {
				if ctx.Err() != nil {
					// Cancelled by the caller, nothing to report.
					return
				}
				fail(&agents.TransportError{Op: "read run stream", Err: err})
				return
			}
			setRequestToFirstChunkTime(span)

			if c.debugStream {
				logger.Debug("run stream chunk", "event", event, "data", string(data))
			}

			switch event {
			case eventEnd:
				return
			case eventError:
				fail(&agents.TransportError{Op: "run stream", Err: runError(data)})
				return
			}

			chunks++
			if !yield(agents.Chunk{Event: event, Data: json.RawMessage(data)}, nil) {
				return
			}
		}
	}
}

func runError(data []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		switch {
		case payload.Error != "" && payload.Message != "":
			return fmt.Errorf("%s: %s", payload.Error, payload.Message)
		case payload.Message != "":
			return errors.New(payload.Message)
		case payload.Error != "":
			return errors.New(payload.Error)
		}
	}
	if len(data) == 0 {
		return errors.New("runtime reported an error")
	}
	return errors.New(string(data))
}
