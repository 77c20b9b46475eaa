package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// Sanitize exports sanitize for testing.
var Sanitize = sanitize

// BlockCount returns the number of rendered blocks.
func BlockCount(m Model) int {
	return len(m.blocks)
}

// SetRunning puts the model in a running state with cancel as its cancel
// function.
func SetRunning(m Model, cancel func()) Model {
	m.running = true
	m.cancel = cancel
	return m
}
