// Package agents describes the contract between the bridge and a remote
// agent runtime. Implementations live in sub-packages (see langgraph).
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single message exchanged with the agent runtime.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`

	// Raw is the message as the runtime stored it. A message with Raw is
	// sent back unchanged, keeping tool calls and tool results intact.
	Raw json.RawMessage `json:"-"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type plain Message
	return json.Marshal(plain(m))
}

// SameAs reports whether m and other carry the same role, content and id.
func (m Message) SameAs(other Message) bool {
	return m.Role == other.Role && m.Content == other.Content && m.ID == other.ID
}

// StreamMode selects which stream the agent runtime produces for a run.
type StreamMode string

const (
	StreamModeValues   StreamMode = "values"
	StreamModeMessages StreamMode = "messages"
	StreamModeUpdates  StreamMode = "updates"
	StreamModeEvents   StreamMode = "events"
)

func (m StreamMode) Valid() bool {
	switch m {
	case StreamModeValues, StreamModeMessages, StreamModeUpdates, StreamModeEvents:
		return true
	}
	return false
}

// ParseStreamMode converts user supplied configuration into a StreamMode.
func ParseStreamMode(mode string) (StreamMode, error) {
	if m := StreamMode(mode); m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown stream mode %q", mode)
}

// Chunk is one raw item of a run stream. Data is kept undecoded, its shape
// depends on Event and on the runtime.
type Chunk struct {
	Event string
	Data  json.RawMessage
}

// RunConfig is passed through to the runtime without interpretation.
type RunConfig struct {
	Configurable map[string]any `json:"configurable,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type RunRequest struct {
	// ThreadID is empty for threadless runs.
	ThreadID    string
	AssistantID string
	Input       []Message
	StreamMode  StreamMode
	Config      RunConfig
}

// RemoteRunClient opens and streams runs against a remote agent runtime.
//
// OpenRun yields chunks in the order they were received. A transport
// failure is yielded as the last element with a nil chunk. Breaking out of
// the iteration or cancelling ctx releases the underlying stream.
type RemoteRunClient interface {
	OpenRun(ctx context.Context, req RunRequest) iter.Seq2[Chunk, error]
	// EnsureThread returns threadID when it is set and creates a new thread
	// otherwise.
	EnsureThread(ctx context.Context, threadID string) (string, error)
	ThreadHistory(ctx context.Context, threadID string) ([]Message, error)
}

var (
	ErrTransport                = errors.New("agent runtime transport failure")
	ErrThreadHistoryUnavailable = errors.New("thread history unavailable")
)

// TransportError reports a dropped, refused or timed out remote stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrTransport.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
