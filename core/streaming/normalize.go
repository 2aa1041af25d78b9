package streaming

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/koscakluka/ema-agentbridge/core/agents"
)

type EventKind string

const (
	EventKindTokenDelta      EventKind = "token_delta"
	EventKindMessageSnapshot EventKind = "message_snapshot"
	EventKindRawString       EventKind = "raw_string"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleUnknown   Role = "unknown"
)

// Event is the canonical shape of a run stream chunk. Role, Content and
// ToolCalls describe the last message of the chunk. Tools lists the tools
// invoked by every assistant message the chunk carries.
type Event struct {
	Kind      EventKind
	Role      Role
	Content   string
	ToolCalls []string
	Tools     []string
}

const (
	tagMessages         = "messages"
	tagMessagesPartial  = "messages/partial"
	tagMessagesComplete = "messages/complete"
	tagValues           = "values"
)

// Normalize classifies a raw chunk. Chunks that carry nothing the bridge
// understands produce no event.
func Normalize(chunk agents.Chunk) (Event, bool) {
	data := bytes.TrimSpace(chunk.Data)
	if len(data) == 0 {
		return Event{}, false
	}

	switch chunk.Event {
	case tagMessages, tagMessagesPartial, tagMessagesComplete:
		if messages, ok := messagesOf(data, false); ok {
			event := toEvent(messages, EventKindTokenDelta)
			if chunk.Event == tagMessagesComplete && len(event.ToolCalls) == 0 {
				event.Kind = EventKindMessageSnapshot
			}
			return event, true
		}
	case tagValues:
		if messages, ok := messagesOf(data, true); ok {
			return toEvent(messages, EventKindMessageSnapshot), true
		}
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return Event{Kind: EventKindRawString, Role: RoleAssistant, Content: text}, true
		}
	}

	return Event{}, false
}

// messagesOf decodes the messages of a bare list or of a mapping with a
// "messages" list. With allowSingle a mapping that is itself a message is
// accepted too. The result is never empty when ok is true.
func messagesOf(data json.RawMessage, allowSingle bool) ([]agents.WireMessage, bool) {
	switch data[0] {
	case '[':
		return listOf(data)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, false
		}
		if messages, ok := fields["messages"]; ok {
			return listOf(messages)
		}
		if allowSingle {
			if msg, ok := decodeMessage(data); ok {
				return []agents.WireMessage{msg}, true
			}
		}
	}
	return nil, false
}

func listOf(list json.RawMessage) ([]agents.WireMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil || len(items) == 0 {
		return nil, false
	}

	if _, ok := decodeMessage(items[len(items)-1]); !ok {
		// The messages stream mode sends (message, metadata) pairs.
		if len(items) == 2 {
			if msg, ok := decodeMessage(items[0]); ok {
				return []agents.WireMessage{msg}, true
			}
		}
		return nil, false
	}

	messages := make([]agents.WireMessage, 0, len(items))
	for _, item := range items {
		if msg, ok := decodeMessage(item); ok {
			messages = append(messages, msg)
		}
	}
	return messages, true
}

func decodeMessage(raw json.RawMessage) (agents.WireMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || !agents.IsMessage(fields) {
		return agents.WireMessage{}, false
	}

	var msg agents.WireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return agents.WireMessage{}, false
	}
	return msg, true
}

func toEvent(messages []agents.WireMessage, kind EventKind) Event {
	last := messages[len(messages)-1]
	role := RoleUnknown
	if resolved, ok := last.ResolvedRole(); ok {
		role = Role(resolved)
	}

	var tools []string
	for _, msg := range messages {
		if resolved, _ := msg.ResolvedRole(); resolved != agents.RoleAssistant {
			continue
		}
		for _, name := range msg.ToolNames() {
			if !slices.Contains(tools, name) {
				tools = append(tools, name)
			}
		}
	}

	return Event{
		Kind:      kind,
		Role:      role,
		Content:   last.Text(),
		ToolCalls: last.ToolNames(),
		Tools:     tools,
	}
}
