package bubbletea

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
)

// Interface compliance checks.
var (
	_ drip.Sink       = (*Bridge)(nil)
	_ drip.PolicyGate = (*Bridge)(nil)
)

// Bridge turns Sink notifications and policy questions into tea.Msgs for
// the model. Messages are delivered in the order they were sent. Sends
// block until the model takes the message or the bridge is closed.
type Bridge struct {
	msgs      chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates an open Bridge.
func NewBridge() *Bridge {
	return &Bridge{
		msgs: make(chan tea.Msg, 256),
		done: make(chan struct{}),
	}
}

// Close releases blocked senders. Messages sent afterwards are dropped.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Listen returns a command that waits for the next message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *Bridge) send(msg tea.Msg) bool {
	if b.closed() {
		return false
	}
	select {
	case b.msgs <- msg:
		return true
	case <-b.done:
		return false
	}
}

func (b *Bridge) OnPartialUpdate(text string)           { b.send(PartialMsg{Text: text}) }
func (b *Bridge) OnTokenEstimateChanged(total int)      { b.send(EstimateMsg{Total: total}) }
func (b *Bridge) OnTokenTotals(totals drip.TokenTotals) { b.send(TotalsMsg{Totals: totals}) }
func (b *Bridge) OnError(message string)                { b.send(ErrorMsg{Message: message}) }
func (b *Bridge) OnQuotaExceeded()                      { b.send(QuotaMsg{}) }
func (b *Bridge) OnCompleted(text string)               { b.send(CompletedMsg{Text: text}) }
func (b *Bridge) OnCancelled()                          { b.send(CancelledMsg{}) }
func (b *Bridge) OnCodeGPTEvent(evt drip.CodeGPTEvent)  { b.send(CodeEventMsg{Event: evt}) }
func (b *Bridge) SetInteractionEnabled(enabled bool)    { b.send(InteractionMsg{Enabled: enabled}) }

// ConfirmContinue asks the user through the model. A closed bridge
// declines.
func (b *Bridge) ConfirmContinue(ctx context.Context, conv *drip.Conversation, resolve func(ok bool)) {
	if b.closed() {
		resolve(false)
		return
	}
	go func() {
		select {
		case b.msgs <- ConfirmMsg{Conversation: conv, Resolve: resolve}:
		case <-b.done:
			resolve(false)
		case <-ctx.Done():
		}
	}()
}

// Done posts the exchange result. It is sent after every notification of
// the exchange, so the model sees it last.
func (b *Bridge) Done(outcome drip.Outcome, err error) {
	b.send(ExchangeDoneMsg{Outcome: outcome, Err: err})
}
