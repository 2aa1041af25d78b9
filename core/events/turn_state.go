package events

const (
	// KindTurnStarted identifies the start of a run.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies a run whose stream ended normally.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies a run that ended because of an error.
	KindTurnFailed Kind = "turn_state.failed"
	// KindTurnCancelled identifies turn cancellation.
	KindTurnCancelled Kind = "turn_state.cancelled"
)

// TurnStarted marks the start of a run on a thread. ThreadID is empty for
// threadless runs.
type TurnStarted struct {
	Base
	RunID    string
	ThreadID string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(runID, threadID string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), RunID: runID, ThreadID: threadID}
}

// TurnCompleted marks a run that finished on its own.
type TurnCompleted struct {
	Base
	RunID string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(runID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), RunID: runID}
}

// TurnFailed marks a run that ended with an error.
type TurnFailed struct {
	Base
	RunID string
	Error string
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(runID string, err error) TurnFailed {
	event := TurnFailed{Base: NewBase(KindTurnFailed), RunID: runID}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}

// TurnCancelled marks cancellation of the current turn.
type TurnCancelled struct {
	Base
	RunID string
}

// NewTurnCancelled creates a turn cancelled event.
func NewTurnCancelled(runID string) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled), RunID: runID}
}
