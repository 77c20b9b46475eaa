package bubbletea_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge(t *testing.T) {
	t.Parallel()

	t.Run("delivers notifications in order", func(t *testing.T) {
		t.Parallel()
		b := bt.NewBridge()
		defer b.Close()

		b.SetInteractionEnabled(false)
		b.OnTokenEstimateChanged(12)
		b.OnPartialUpdate("hi")
		b.OnCodeGPTEvent(drip.CodeGPTEvent{Kind: "thinking"})
		b.OnTokenTotals(drip.TokenTotals{Prompt: 1, Conversation: 3})
		b.OnCompleted("hi")
		b.OnError("boom")
		b.OnQuotaExceeded()
		b.OnCancelled()
		b.Done(drip.OutcomeCancelled{}, nil)

		listen := b.Listen()
		assert.Equal(t, bt.InteractionMsg{Enabled: false}, listen())
		assert.Equal(t, bt.EstimateMsg{Total: 12}, listen())
		assert.Equal(t, bt.PartialMsg{Text: "hi"}, listen())
		assert.Equal(t, bt.CodeEventMsg{Event: drip.CodeGPTEvent{Kind: "thinking"}}, listen())
		assert.Equal(t, bt.TotalsMsg{Totals: drip.TokenTotals{Prompt: 1, Conversation: 3}}, listen())
		assert.Equal(t, bt.CompletedMsg{Text: "hi"}, listen())
		assert.Equal(t, bt.ErrorMsg{Message: "boom"}, listen())
		assert.Equal(t, bt.QuotaMsg{}, listen())
		assert.Equal(t, bt.CancelledMsg{}, listen())
		assert.Equal(t, bt.ExchangeDoneMsg{Outcome: drip.OutcomeCancelled{}}, listen())
	})

	t.Run("confirm carries the resolver", func(t *testing.T) {
		t.Parallel()
		b := bt.NewBridge()
		defer b.Close()
		conv := &drip.Conversation{ID: "c"}
		var answer atomic.Int32

		b.ConfirmContinue(context.Background(), conv, func(ok bool) {
			if ok {
				answer.Store(1)
			} else {
				answer.Store(2)
			}
		})

		msg, ok := b.Listen()().(bt.ConfirmMsg)
		require.True(t, ok)
		assert.Same(t, conv, msg.Conversation)
		msg.Resolve(true)
		assert.Equal(t, int32(1), answer.Load())
	})

	t.Run("closed bridge declines confirmation", func(t *testing.T) {
		t.Parallel()
		b := bt.NewBridge()
		b.Close()
		answered := make(chan bool, 1)

		b.ConfirmContinue(context.Background(), &drip.Conversation{}, func(ok bool) { answered <- ok })

		select {
		case ok := <-answered:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "confirmation not declined")
		}
	})

	t.Run("close releases listeners and senders", func(t *testing.T) {
		t.Parallel()
		b := bt.NewBridge()
		b.Close()
		b.Close()

		assert.Nil(t, b.Listen()())
		assert.NotPanics(t, func() { b.OnCompleted("late") })
	})
}
