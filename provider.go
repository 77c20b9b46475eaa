package drip

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving deltas.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream uses a pull-based iterator pattern. Cancellation flows through the
// context passed to Provider.Stream().
//
// Response() returns the assembled response. Behavior by stream state:
//   - StreamStateComplete: complete response, nil error.
//   - StreamStateError: partial response, nil error. StopReason is StopError
//     for transport/protocol failures, StopAborted for context cancellation.
//   - StreamStateStreaming: partial response, nil error.
//   - StreamStateNew: zero-value response, non-nil error.
//   - StreamStateClosed: partial response with StopReason = StopAborted.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Response() (Response, error)
	Close() error
}

// Provider is a strategy pattern interface for completion providers.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Response is the assembled result of a Stream.
type Response struct {
	Text          string
	StopReason    StopReason
	RawStopReason string
	Usage         Usage
}
