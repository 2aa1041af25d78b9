package agents

import (
	"encoding/json"
	"strings"
)

// WireMessage is the loosely typed message shape agent runtimes put on the
// wire. Depending on the serializer the author is in Type ("ai", "human") or
// in Role ("assistant", "user"), and Content is either a string or a list of
// content blocks.
type WireMessage struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	ToolCalls []WireToolCall  `json:"tool_calls,omitempty"`
}

type WireToolCall struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Function *struct {
		Name string `json:"name,omitempty"`
	} `json:"function,omitempty"`
}

func (c WireToolCall) ToolName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Function != nil {
		return c.Function.Name
	}
	return ""
}

// Author is the runtime's own name for the message author.
func (m WireMessage) Author() string {
	if m.Type != "" {
		return m.Type
	}
	return m.Role
}

// ResolvedRole maps the runtime's author naming onto Role. The second
// return value is false for authors the bridge does not know.
func (m WireMessage) ResolvedRole() (Role, bool) {
	switch strings.ToLower(m.Author()) {
	case "ai", "assistant", "aimessage", "aimessagechunk":
		return RoleAssistant, true
	case "human", "user", "humanmessage", "humanmessagechunk":
		return RoleUser, true
	case "system", "systemmessage":
		return RoleSystem, true
	}
	return "", false
}

// Text returns the textual content. Non-text content blocks are skipped.
func (m WireMessage) Text() string {
	if len(m.Content) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(m.Content, &text); err == nil {
		return text
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, block := range blocks {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

func (m WireMessage) ToolNames() []string {
	var names []string
	for _, call := range m.ToolCalls {
		if name := call.ToolName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IsMessage reports whether raw looks like a single message object.
func IsMessage(raw map[string]json.RawMessage) bool {
	_, hasContent := raw["content"]
	_, hasType := raw["type"]
	_, hasRole := raw["role"]
	return hasContent && (hasType || hasRole)
}
