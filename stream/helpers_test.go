package stream_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/mock"
	"github.com/fwojciec/drip/stream"
	"github.com/stretchr/testify/require"
)

// recorder captures Sink notifications in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Partials returns the text of every OnPartialUpdate call.
func (r *recorder) Partials() []string {
	var out []string
	for _, e := range r.Events() {
		if text, ok := strings.CutPrefix(e, "partial:"); ok {
			out = append(out, text)
		}
	}
	return out
}

// Count returns how many events equal want.
func (r *recorder) Count(want string) int {
	n := 0
	for _, e := range r.Events() {
		if e == want {
			n++
		}
	}
	return n
}

func (r *recorder) sink() *mock.Sink {
	return &mock.Sink{
		OnPartialUpdateFn:        func(text string) { r.add("partial:%s", text) },
		OnTokenEstimateChangedFn: func(total int) { r.add("estimate:%d", total) },
		OnTokenTotalsFn: func(t drip.TokenTotals) {
			r.add("totals:%d/%d", t.Prompt, t.Conversation)
		},
		OnErrorFn:               func(message string) { r.add("error:%s", message) },
		OnQuotaExceededFn:       func() { r.add("quota") },
		OnCompletedFn:           func(text string) { r.add("completed:%s", text) },
		OnCancelledFn:           func() { r.add("cancelled") },
		OnCodeGPTEventFn:        func(evt drip.CodeGPTEvent) { r.add("event:%s", evt.Kind) },
		SetInteractionEnabledFn: func(enabled bool) { r.add("interaction:%t", enabled) },
	}
}

// wordCounter counts whitespace-separated words, at least one per
// non-empty fragment.
var wordCounter = drip.TokenCounterFunc(func(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(1, len(strings.Fields(text))), nil
})

// newController returns a controller whose scheduler never ticks on its
// own, so tests drive flushes explicitly.
func newController(t *testing.T, opts ...stream.Option) (*stream.Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]stream.Option{stream.WithInterval(time.Hour)}, opts...)
	return stream.New(rec.sink(), wordCounter, opts...), rec
}

// waitDone fails the test if the controller does not tear down in time.
func waitDone(t *testing.T, c *stream.Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "controller did not tear down", "status: %s", c.Status())
	}
}

// finish drives the stopped controller's final flush and waits for
// teardown.
func finish(t *testing.T, c *stream.Controller) {
	t.Helper()
	c.Flush()
	waitDone(t, c)
}
