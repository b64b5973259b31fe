package room

import "encoding/json"

// History is the ordered event log of the shared board.
//
// It is not safe for concurrent use; Room serializes every call behind its mutex so
// that a snapshot always matches a state the log was actually in.
type History struct {
	events []json.RawMessage
}

func NewHistory() *History {
	return &History{}
}

// Append: folds an event into the log. A clear empties the log and is not kept,
// a cleanup result replaces everything before it, anything else is appended.
func (h *History) Append(e Event) {
	switch e.Kind {
	case KindClear:
		h.events = nil
	case KindCleanup:
		h.events = []json.RawMessage{e.Raw}
	default:
		h.events = append(h.events, e.Raw)
	}
}

// Snapshot: copy of the current log, never nil
func (h *History) Snapshot() []json.RawMessage {
	out := make([]json.RawMessage, len(h.events))
	copy(out, h.events)
	return out
}

func (h *History) Len() int {
	return len(h.events)
}
