package streaming

import (
	"strings"
	"unicode/utf8"
)

type OutputKind int

const (
	OutputStart OutputKind = iota
	OutputDelta
	OutputEnd
)

func (k OutputKind) String() string {
	switch k {
	case OutputStart:
		return "start"
	case OutputDelta:
		return "delta"
	case OutputEnd:
		return "end"
	}
	return "unknown"
}

type Output struct {
	Kind OutputKind
	// Text is only set for deltas.
	Text string
}

// substantialLength is the content length (in runes) above which assistant
// messages are emitted before any tool has been used.
const substantialLength = 20

// DeltaEmitter tracks the cumulative assistant text of one run and emits
// only what was appended since the last observation.
//
// Exactly one start/end pair exists per run: Close ends the run and further
// observations produce nothing until Reset.
type DeltaEmitter struct {
	tools *ToolTracker

	emitted string
	open    bool
	closed  bool
}

// NewDeltaEmitter builds an emitter that consults tools for the
// substantial content check. A nil tracker means no tools are ever seen.
func NewDeltaEmitter(tools *ToolTracker) *DeltaEmitter {
	if tools == nil {
		tools = &ToolTracker{}
	}
	return &DeltaEmitter{tools: tools}
}

func (e *DeltaEmitter) Observe(event Event) []Output {
	if e.closed || event.Role != RoleAssistant {
		return nil
	}
	if len(event.ToolCalls) > 0 {
		return nil
	}

	content := event.Content
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if event.Kind != EventKindRawString && !e.substantial(content) {
		return nil
	}
	if e.open && content == e.emitted {
		return nil
	}

	var outputs []Output
	if !e.open {
		outputs = append(outputs, Output{Kind: OutputStart})
		e.open = true
		e.emitted = ""
	}

	delta := content
	if strings.HasPrefix(content, e.emitted) {
		delta = content[len(e.emitted):]
	}
	e.emitted = content
	if delta != "" {
		outputs = append(outputs, Output{Kind: OutputDelta, Text: delta})
	}

	return outputs
}

func (e *DeltaEmitter) substantial(content string) bool {
	return utf8.RuneCountInString(content) > substantialLength || e.tools.Any()
}

// Close ends the run, yielding an end marker iff a start was emitted.
func (e *DeltaEmitter) Close() []Output {
	if e.closed {
		return nil
	}
	e.closed = true

	if !e.open {
		return nil
	}
	e.open = false
	return []Output{{Kind: OutputEnd}}
}

// Reset prepares the emitter for a new run.
func (e *DeltaEmitter) Reset() {
	e.emitted = ""
	e.open = false
	e.closed = false
}

func (e *DeltaEmitter) Open() bool      { return e.open }
func (e *DeltaEmitter) Emitted() string { return e.emitted }
