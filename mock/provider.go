// Package mock provides test doubles for drip interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/drip"
)

// Interface compliance checks.
var (
	_ drip.Provider = (*Provider)(nil)
	_ drip.Stream   = (*Stream)(nil)
)

// Provider is a test double for drip.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req drip.Request) (drip.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req drip.Request) (drip.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Stream is a test double for drip.Stream.
// Set the function fields for the methods you need. NextFn and ResponseFn
// panic when nil to catch missing setup. CloseFn and StateFn are nil-safe
// (no-op and zero value) because callers commonly defer stream.Close()
// and these methods rarely need custom behavior.
type Stream struct {
	NextFn     func() (drip.Event, error)
	StateFn    func() drip.StreamState
	ResponseFn func() (drip.Response, error)
	CloseFn    func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (drip.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() drip.StreamState {
	if s.StateFn == nil {
		return drip.StreamStateNew
	}
	return s.StateFn()
}

// Response delegates to ResponseFn.
func (s *Stream) Response() (drip.Response, error) {
	return s.ResponseFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
