package langgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/koscakluka/ema-agentbridge/core/agents"
)

// EnsureThread returns threadID unchanged when set, otherwise it creates a
// thread on the runtime.
func (c *Client) EnsureThread(ctx context.Context, threadID string) (string, error) {
	if threadID != "" {
		return threadID, nil
	}

	var thread struct {
		ThreadID string `json:"thread_id"`
	}
	if err := c.doJSON(ctx, "create thread", http.MethodPost, "/threads", map[string]any{}, &thread); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	if thread.ThreadID == "" {
		return "", fmt.Errorf("failed to create thread: response carried no thread_id")
	}
	return thread.ThreadID, nil
}

// ThreadHistory returns the messages stored in the thread state. Every
// message keeps its stored form, so ids, tool calls and tool results go
// back to the runtime unchanged.
func (c *Client) ThreadHistory(ctx context.Context, threadID string) ([]agents.Message, error) {
	if threadID == "" {
		return nil, nil
	}

	var state struct {
		Values json.RawMessage `json:"values"`
	}
	path := "/threads/" + url.PathEscape(threadID) + "/state"
	if err := c.doJSON(ctx, "get thread state", http.MethodGet, path, nil, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", agents.ErrThreadHistoryUnavailable, err)
	}

	rawMessages, err := stateMessages(state.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", agents.ErrThreadHistoryUnavailable, err)
	}

	history := make([]agents.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var msg agents.WireMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: error unmarshalling state message: %w", agents.ErrThreadHistoryUnavailable, err)
		}
		role, ok := msg.ResolvedRole()
		if !ok {
			role = agents.Role(strings.ToLower(msg.Author()))
		}
		history = append(history, agents.Message{Role: role, Content: msg.Text(), ID: msg.ID, Raw: raw})
	}
	return history, nil
}

// stateMessages accepts both {"messages": [...]} values and graphs whose
// state is the message list itself.
func stateMessages(values json.RawMessage) ([]json.RawMessage, error) {
	if len(values) == 0 || string(values) == "null" {
		return nil, nil
	}

	var messages []json.RawMessage
	if values[0] == '[' {
		if err := json.Unmarshal(values, &messages); err != nil {
			return nil, fmt.Errorf("error unmarshalling state messages: %w", err)
		}
		return messages, nil
	}

	var wrapped struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(values, &wrapped); err != nil {
		return nil, fmt.Errorf("error unmarshalling state values: %w", err)
	}
	return wrapped.Messages, nil
}
