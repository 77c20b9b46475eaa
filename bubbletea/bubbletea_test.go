package bubbletea_test

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
	bt "github.com/fwojciec/drip/bubbletea"
	"github.com/stretchr/testify/require"
)

// initModel creates a model sized 80x24 with a fresh conversation.
func initModel(t *testing.T, run bt.ExchangeFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, run, 80, 24)
}

func initModelWithSize(t *testing.T, run bt.ExchangeFunc, width, height int) bt.Model {
	t.Helper()
	bridge := bt.NewBridge()
	t.Cleanup(bridge.Close)
	m := bt.New(run, bridge, &drip.Conversation{ID: "conv-1"}, drip.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func typeInput(t *testing.T, in textinput.Model, s string) textinput.Model {
	t.Helper()
	for _, r := range s {
		in, _ = in.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return in
}

// nopExchange completes immediately without notifications.
func nopExchange(context.Context, *drip.Conversation, string) (drip.Outcome, error) {
	return drip.OutcomeCompleted{}, nil
}
