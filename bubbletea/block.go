package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element of the conversation. View takes a
// width so the root model controls layout and blocks can be tested alone.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
type ToggleMsg struct{}
