package events

const (
	// KindAssistantResponseStarted identifies the start marker of a run's response.
	KindAssistantResponseStarted Kind = "assistant_response.started"
	// KindAssistantResponseSegment identifies streamed assistant response text.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies the end marker of a run's response.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseStarted opens the response of a run.
type AssistantResponseStarted struct {
	Base
	RunID string
}

// NewAssistantResponseStarted creates an assistant response started event.
func NewAssistantResponseStarted(runID string) AssistantResponseStarted {
	return AssistantResponseStarted{Base: NewBase(KindAssistantResponseStarted), RunID: runID}
}

// AssistantResponseSegment carries newly appended response text.
type AssistantResponseSegment struct {
	Base
	RunID   string
	Segment string
}

// NewAssistantResponseSegment creates an assistant response segment event.
func NewAssistantResponseSegment(runID, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), RunID: runID, Segment: segment}
}

// AssistantResponseFinal closes the response of a run. It is sent exactly
// once for every AssistantResponseStarted, including cancelled and failed
// runs.
type AssistantResponseFinal struct {
	Base
	RunID string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(runID string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), RunID: runID}
}
