// Package bubbletea provides a Bubble Tea TUI that renders streamed
// completions and answers token-limit confirmations.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
)

// ExchangeFunc runs one exchange for prompt on conv. Notifications arrive
// through the Bridge the model was created with. It blocks until the
// exchange has ended.
type ExchangeFunc func(ctx context.Context, conv *drip.Conversation, prompt string) (drip.Outcome, error)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	defer m.bridge.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// PartialMsg carries an OnPartialUpdate batch.
type PartialMsg struct {
	Text string
}

// EstimateMsg carries the running token estimate.
type EstimateMsg struct {
	Total int
}

// TotalsMsg carries the final token counts of a completed exchange.
type TotalsMsg struct {
	Totals drip.TokenTotals
}

// ErrorMsg reports a failed exchange.
type ErrorMsg struct {
	Message string
}

// QuotaMsg reports quota exhaustion.
type QuotaMsg struct{}

// CompletedMsg reports a completed exchange.
type CompletedMsg struct {
	Text string
}

// CancelledMsg reports a cancelled exchange.
type CancelledMsg struct{}

// CodeEventMsg carries an out-of-band producer event.
type CodeEventMsg struct {
	Event drip.CodeGPTEvent
}

// InteractionMsg enables or disables the input.
type InteractionMsg struct {
	Enabled bool
}

// ConfirmMsg asks the user whether to continue past the token limit.
// Resolve must be called exactly once.
type ConfirmMsg struct {
	Conversation *drip.Conversation
	Resolve      func(ok bool)
}

// ExchangeDoneMsg signals that the exchange function returned.
type ExchangeDoneMsg struct {
	Outcome drip.Outcome
	Err     error
}
