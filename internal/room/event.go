package room

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the discriminant of a drawing event
type Kind int

const (
	// KindStroke covers every event the server does not interpret (strokes, shapes, erasures)
	KindStroke Kind = iota
	// KindClear empties the board
	KindClear
	// KindCleanup replaces the board with an AI cleanup result
	KindCleanup
)

func (k Kind) String() string {
	switch k {
	case KindClear:
		return "clear"
	case KindCleanup:
		return "cleanup"
	default:
		return "stroke"
	}
}

// ErrNotObject is returned for frames that are valid JSON but not a JSON object
var ErrNotObject = errors.New("event is not a JSON object")

// ErrNotRegistered is returned for frames from a connection the room has already dropped
var ErrNotRegistered = errors.New("sender is not registered")

// Event: a client frame and its discriminant. Raw holds the exact bytes the client sent.
type Event struct {
	Kind Kind
	Raw  json.RawMessage
}

// ParseEvent: decodes the "type" discriminant of a client frame, keeping the payload verbatim
func ParseEvent(raw []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if fields == nil {
		return Event{}, ErrNotObject
	}

	// a non-string type is just another drawing payload
	var eventType string
	if t, ok := fields["type"]; ok {
		_ = json.Unmarshal(t, &eventType)
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)

	return Event{Kind: kindOf(eventType), Raw: buf}, nil
}

func kindOf(eventType string) Kind {
	switch eventType {
	case "clear":
		return KindClear
	case "cleanup", "cleanup-result":
		return KindCleanup
	default:
		return KindStroke
	}
}
