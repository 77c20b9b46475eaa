package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/drip"
	"google.golang.org/genai"
)

// stream implements [drip.Stream] by wrapping the genai SDK's streaming iterator.
// A single chunk may carry several parts, so events are queued and handed
// out one per Next call.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	state   drip.StreamState
	resp    drip.Response
	text    strings.Builder
	pending []drip.Event
	err     error
}

// Interface compliance check.
var _ drip.Stream = (*stream)(nil)

// NewStreamFromIter wraps a genai response iterator. Exported for testing.
func NewStreamFromIter(ctx context.Context, iterFn iter.Seq2[*genai.GenerateContentResponse, error]) drip.Stream {
	next, stop := iter.Pull2(iterFn)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: drip.StreamStateNew,
	}
}

func (s *stream) Next() (drip.Event, error) {
	switch s.state {
	case drip.StreamStateComplete:
		return nil, io.EOF
	case drip.StreamStateError:
		return nil, s.err
	case drip.StreamStateClosed:
		return nil, fmt.Errorf("gemini: %w", drip.ErrStreamClosed)
	}

	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			s.state = drip.StreamStateStreaming
			return evt, nil
		}
		if err := s.ctx.Err(); err != nil {
			s.terminate(fmt.Errorf("gemini: %w", err), drip.StopAborted, "aborted")
			return nil, s.err
		}

		chunk, err, ok := s.pull()
		if !ok {
			s.finish()
			return nil, io.EOF
		}
		if err != nil {
			if s.ctx.Err() != nil {
				s.terminate(fmt.Errorf("gemini: %w", err), drip.StopAborted, "aborted")
			} else {
				s.terminate(producerError(err), drip.StopError, "error")
			}
			return nil, s.err
		}
		if err := s.process(chunk); err != nil {
			return nil, err
		}
	}
}

// process queues the events of one chunk and records usage and stop reason.
func (s *stream) process(chunk *genai.GenerateContentResponse) error {
	if chunk == nil {
		return nil
	}
	if u := chunk.UsageMetadata; u != nil {
		s.resp.Usage.InputTokens = max(0, int(u.PromptTokenCount))
		s.resp.Usage.OutputTokens = max(0, int(u.CandidatesTokenCount))
	}
	if len(chunk.Candidates) == 0 {
		if fb := chunk.PromptFeedback; fb != nil && fb.BlockReason != "" {
			reason := string(fb.BlockReason)
			s.terminate(&drip.ProducerError{
				Code:    "prompt_blocked",
				Message: "prompt blocked: " + reason,
			}, drip.StopError, reason)
			return s.err
		}
		return nil
	}

	cand := chunk.Candidates[0]
	if cand.FinishReason != "" {
		s.resp.RawStopReason = string(cand.FinishReason)
		s.resp.StopReason = mapFinishReason(cand.FinishReason)
	}
	if cand.Content == nil {
		return nil
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			payload, err := json.Marshal(map[string]string{"text": part.Text})
			if err != nil {
				s.terminate(fmt.Errorf("gemini: encode thought: %w", err), drip.StopError, "error")
				return s.err
			}
			s.pending = append(s.pending, drip.EventCodeGPT{Event: drip.CodeGPTEvent{Kind: KindThinking, Payload: payload}})
			continue
		}
		s.text.WriteString(part.Text)
		s.pending = append(s.pending, drip.EventTextDelta{Delta: part.Text})
	}
	return nil
}

func (s *stream) finish() {
	s.state = drip.StreamStateComplete
	if s.resp.StopReason == "" {
		s.resp.StopReason = drip.StopEndTurn
		s.resp.RawStopReason = "end_turn"
	}
}

func (s *stream) terminate(err error, reason drip.StopReason, raw string) {
	s.state = drip.StreamStateError
	s.err = err
	s.resp.StopReason = reason
	s.resp.RawStopReason = raw
	s.pending = nil
}

func (s *stream) State() drip.StreamState {
	return s.state
}

func (s *stream) Response() (drip.Response, error) {
	if s.state == drip.StreamStateNew {
		return drip.Response{}, fmt.Errorf("gemini: %w", drip.ErrStreamNotReady)
	}
	r := s.resp
	r.Text = s.text.String()
	return r, nil
}

func (s *stream) Close() error {
	if s.state != drip.StreamStateComplete && s.state != drip.StreamStateError {
		s.state = drip.StreamStateClosed
		s.resp.StopReason = drip.StopAborted
		s.resp.RawStopReason = "aborted"
	}
	s.stop()
	return nil
}

func mapFinishReason(r genai.FinishReason) drip.StopReason {
	switch r {
	case genai.FinishReasonStop:
		return drip.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return drip.StopLength
	default:
		return drip.StopUnknown
	}
}
