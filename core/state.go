package orchestration

// RunState is the lifecycle state of the most recent run of a [Bridge].
//
// A run moves from Running to exactly one of Completed, Cancelled or
// Failed. The terminal state is kept until the next run starts.
type RunState int

const (
	RunStateIdle RunState = iota
	RunStateRunning
	RunStateCompleted
	RunStateCancelled
	RunStateFailed
)

func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	case RunStateCompleted:
		return "completed"
	case RunStateCancelled:
		return "cancelled"
	case RunStateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the run has finished.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateCancelled || s == RunStateFailed
}
