package events

// KindToolCallStarted identifies the first use of a tool within a run.
const KindToolCallStarted Kind = "tool_call.started"

// ToolCallStarted reports a tool the agent invoked for the first time in
// the current run. The bridge only observes the agent, so there are no
// completion events.
type ToolCallStarted struct {
	Base
	RunID string
	Name  string
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(runID, name string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), RunID: runID, Name: name}
}
