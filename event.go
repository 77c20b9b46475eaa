package drip

import "encoding/json"

// Event is a sealed interface representing a streaming event.
// Events are purely semantic. Transport/protocol errors come from
// Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventTextDelta represents a text content delta.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

// EventCodeGPT carries an out-of-band notification from the producer. The
// controller routes it to the Sink without interpreting it.
type EventCodeGPT struct {
	Event CodeGPTEvent
}

func (EventCodeGPT) event() {}

// CodeGPTEvent is an opaque out-of-band event. Kind names the event for
// consumers that care; Payload is passed through verbatim.
type CodeGPTEvent struct {
	Kind    string
	Payload json.RawMessage
}

// Interface compliance checks.
var (
	_ Event = EventTextDelta{}
	_ Event = EventCodeGPT{}
)
