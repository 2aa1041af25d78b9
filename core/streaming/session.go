package streaming

import "github.com/koscakluka/ema-agentbridge/core/agents"

// Session is the per-connection run state. It is not safe for concurrent
// use; only the run currently serving the connection may touch it.
type Session struct {
	// ThreadID persists across runs and is empty until a thread exists.
	ThreadID    string
	AssistantID string
	StreamMode  agents.StreamMode

	tools   ToolTracker
	emitter *DeltaEmitter
}

func NewSession(assistantID string, streamMode agents.StreamMode) *Session {
	s := &Session{
		AssistantID: assistantID,
		StreamMode:  streamMode,
	}
	s.emitter = NewDeltaEmitter(&s.tools)
	return s
}

// Reset clears the per-run state. The thread identity is kept.
func (s *Session) Reset() {
	s.tools.Reset()
	s.emitter.Reset()
}

// Handle normalizes chunk and returns the outputs it produces together with
// the tools the chunk revealed for the first time in this run.
func (s *Session) Handle(chunk agents.Chunk) (outputs []Output, newTools []string) {
	event, ok := Normalize(chunk)
	if !ok {
		return nil, nil
	}

	newTools = s.tools.Record(event)
	return s.emitter.Observe(event), newTools
}

// Finish closes the run and returns the end marker if one is due.
func (s *Session) Finish() []Output {
	return s.emitter.Close()
}

func (s *Session) ResponseOpen() bool  { return s.emitter.Open() }
func (s *Session) EmittedText() string { return s.emitter.Emitted() }
func (s *Session) ToolsSeen() []string { return s.tools.Seen() }
