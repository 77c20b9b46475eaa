package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/drip"
)

// stream implements [drip.Stream] by parsing SSE events from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   drip.StreamState
	resp    drip.Response
	text    strings.Builder
	err     error // terminal error, if any
}

// Interface compliance check.
var _ drip.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   drip.StreamStateNew,
	}
}

// Next reads the next semantic event from the SSE stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (drip.Event, error) {
	switch s.state {
	case drip.StreamStateComplete:
		return nil, io.EOF
	case drip.StreamStateError:
		return nil, s.err
	case drip.StreamStateClosed:
		return nil, fmt.Errorf("anthropic: %w", drip.ErrStreamClosed)
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		s.state = drip.StreamStateStreaming

		evt, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		// processEvent may set a terminal state (e.g. message_stop).
		if s.state == drip.StreamStateComplete {
			return nil, io.EOF
		}

		if evt != nil {
			return evt, nil
		}
		// Non-semantic event (ping, message_start, etc.) - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() drip.StreamState {
	return s.state
}

// Response returns the text assembled so far.
func (s *stream) Response() (drip.Response, error) {
	if s.state == drip.StreamStateNew {
		return drip.Response{}, fmt.Errorf("anthropic: %w", drip.ErrStreamNotReady)
	}
	r := s.resp
	r.Text = s.text.String()
	return r, nil
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != drip.StreamStateComplete && s.state != drip.StreamStateError {
		s.state = drip.StreamStateClosed
		s.resp.StopReason = drip.StopAborted
		s.resp.RawStopReason = "aborted"
	}
	return s.body.Close()
}

// terminate records a terminal error and sets the appropriate state and stop reason.
func (s *stream) terminate(err error) {
	if err == io.EOF {
		// Normal completion via message_stop sets StreamStateComplete before
		// we get here. A raw EOF means the stream ended unexpectedly.
		s.state = drip.StreamStateError
		s.err = fmt.Errorf("anthropic: unexpected end of stream")
		s.resp.StopReason = drip.StopError
		s.resp.RawStopReason = "error"
		return
	}
	s.state = drip.StreamStateError
	s.err = err
	if s.ctx.Err() != nil {
		s.resp.StopReason = drip.StopAborted
		s.resp.RawStopReason = "aborted"
	} else {
		s.resp.StopReason = drip.StopError
		s.resp.RawStopReason = "error"
	}
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}

	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to a semantic drip.Event.
// Returns nil event for non-semantic events (ping, message_start, etc.).
func (s *stream) processEvent(eventType, data string) (drip.Event, error) {
	switch eventType {
	case "message_start":
		return nil, s.handleMessageStart(data)
	case "content_block_delta":
		return s.handleContentBlockDelta(data)
	case "message_delta":
		return nil, s.handleMessageDelta(data)
	case "message_stop":
		s.state = drip.StreamStateComplete
		return nil, nil
	case "error":
		return nil, s.handleError(data)
	default:
		// ping, content_block_start/stop and unknown event types carry
		// nothing the controller needs.
		return nil, nil
	}
}

func (s *stream) handleMessageStart(data string) error {
	var evt sseMessageStart
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse message_start: %w", err)
	}
	u := evt.Message.Usage
	input := u.InputTokens
	if u.CacheCreationInputTokens != nil {
		input += *u.CacheCreationInputTokens
	}
	if u.CacheReadInputTokens != nil {
		input += *u.CacheReadInputTokens
	}
	s.resp.Usage.InputTokens = input
	return nil
}

func (s *stream) handleContentBlockDelta(data string) (drip.Event, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
	}

	switch evt.Delta.Type {
	case "text_delta":
		s.text.WriteString(evt.Delta.Text)
		return drip.EventTextDelta{Delta: evt.Delta.Text}, nil
	case "thinking_delta":
		payload, err := json.Marshal(thinkingPayload{Index: evt.Index, Text: evt.Delta.Thinking})
		if err != nil {
			return nil, fmt.Errorf("anthropic: encode thinking delta: %w", err)
		}
		return drip.EventCodeGPT{Event: drip.CodeGPTEvent{Kind: KindThinking, Payload: payload}}, nil
	default:
		// input_json_delta, signature_delta: not surfaced.
		return nil, nil
	}
}

func (s *stream) handleMessageDelta(data string) error {
	var evt sseMessageDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse message_delta: %w", err)
	}

	s.resp.Usage.OutputTokens = evt.Usage.OutputTokens

	if evt.Delta.StopReason != nil {
		s.resp.RawStopReason = *evt.Delta.StopReason
		s.resp.StopReason = mapStopReason(*evt.Delta.StopReason)
	}
	return nil
}

// handleError converts an in-stream error event into a *drip.ProducerError.
func (s *stream) handleError(data string) error {
	var evt sseError
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse error event: %w", err)
	}
	return &drip.ProducerError{Code: evt.Error.Type, Message: evt.Error.Message}
}

func mapStopReason(raw string) drip.StopReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return drip.StopEndTurn
	case "max_tokens":
		return drip.StopLength
	default:
		return drip.StopUnknown
	}
}
