package streaming

import (
	"maps"
	"slices"
)

// ToolTracker remembers the tools an assistant invoked during a run. It only
// grows until Reset.
type ToolTracker struct {
	seen map[string]struct{}
}

// Record adds the tools the assistant invoked in event and returns the ones
// that were not seen before.
func (t *ToolTracker) Record(event Event) []string {
	var added []string
	for _, name := range event.Tools {
		if _, ok := t.seen[name]; ok {
			continue
		}
		if t.seen == nil {
			t.seen = map[string]struct{}{}
		}
		t.seen[name] = struct{}{}
		added = append(added, name)
	}
	return added
}

func (t *ToolTracker) Any() bool {
	return len(t.seen) > 0
}

// Seen returns the tool names in lexical order.
func (t *ToolTracker) Seen() []string {
	return slices.Sorted(maps.Keys(t.seen))
}

func (t *ToolTracker) Reset() {
	clear(t.seen)
}
