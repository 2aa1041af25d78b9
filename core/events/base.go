package events

import (
	"strings"
	"time"
)

// Kind is the wire name of an event, "<namespace>.<name>".
type Kind string

// Namespace returns the part of the kind before the first dot.
func (k Kind) Namespace() string {
	namespace, _, _ := strings.Cut(string(k), ".")
	return namespace
}

const (
	NamespaceUserInput         = "user_input"
	NamespaceAssistantResponse = "assistant_response"
	NamespaceToolCall          = "tool_call"
	NamespaceAssistantSpeech   = "assistant_speech"
	NamespaceTurnState         = "turn_state"
	NamespaceLanguage          = "language"
)

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields every event shares. Embed it and construct it
// with NewBase.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
