package bubbletea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/drip"
)

// KindThinking is the event kind whose payload text is shown in a
// ThinkingBlock.
const KindThinking = "thinking"

var _ tea.Model = Model{}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	// Input is the prompt input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run    ExchangeFunc
	bridge *Bridge
	conv   *drip.Conversation
	theme  drip.Theme
	styles Styles

	blocks     []MessageBlock
	blockFocus int // index of the focused thinking block, -1 for none

	// Blocks of the current exchange.
	prompt   *UserMessageBlock
	active   *AssistantTextBlock
	thinking *ThinkingBlock

	running     bool
	interactive bool
	cancel      context.CancelFunc
	confirm     func(ok bool)
	tokens      int
	totals      *drip.TokenTotals
	outcome     drip.Outcome
	err         error
	ready       bool
}

// New creates a Model running exchanges with run. Notifications are read
// from bridge, which must be the Sink and PolicyGate run reports to.
func New(run ExchangeFunc, bridge *Bridge, conv *drip.Conversation, theme drip.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask anything..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:       ti,
		run:         run,
		bridge:      bridge,
		conv:        conv,
		theme:       theme,
		styles:      NewStyles(theme),
		blockFocus:  -1,
		interactive: true,
	}
}

// Running reports whether an exchange is in progress.
func (m Model) Running() bool { return m.running }

// Interactive reports whether the input accepts prompts.
func (m Model) Interactive() bool { return m.interactive }

// Confirming reports whether the model waits for a y/n answer.
func (m Model) Confirming() bool { return m.confirm != nil }

// Outcome returns how the last exchange ended, nil before the first one.
func (m Model) Outcome() drip.Outcome { return m.outcome }

// Err returns the error of the last exchange, if any.
func (m Model) Err() error { return m.err }

// Tokens returns the displayed token count.
func (m Model) Tokens() int { return m.tokens }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.Listen())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PartialMsg:
		if m.active == nil {
			m.active = NewAssistantTextBlock(m.theme)
			m.blocks = append(m.blocks, m.active)
		}
		m.active.Append(msg.Text)
		return m.refresh(), m.bridge.Listen()

	case EstimateMsg:
		m.tokens = msg.Total
		return m, m.bridge.Listen()

	case TotalsMsg:
		totals := msg.Totals
		m.totals = &totals
		m.tokens = totals.Conversation
		if m.prompt != nil {
			m.prompt.SetTokens(totals.Prompt)
			return m.refresh(), m.bridge.Listen()
		}
		return m, m.bridge.Listen()

	case ErrorMsg:
		m.blocks = append(m.blocks, NewErrorBlock(msg.Message, m.styles))
		return m.refresh(), m.bridge.Listen()

	case QuotaMsg:
		m.blocks = append(m.blocks, NewQuotaBlock(m.styles))
		return m.refresh(), m.bridge.Listen()

	case CancelledMsg:
		m.blocks = append(m.blocks, NewCancelledBlock(m.styles))
		return m.refresh(), m.bridge.Listen()

	case CompletedMsg:
		m.active = nil
		m.thinking = nil
		return m, m.bridge.Listen()

	case CodeEventMsg:
		m = m.processEvent(msg.Event)
		return m.refresh(), m.bridge.Listen()

	case InteractionMsg:
		m.interactive = msg.Enabled
		if msg.Enabled {
			return m, tea.Batch(m.Input.Focus(), m.bridge.Listen())
		}
		m.Input.Blur()
		return m, m.bridge.Listen()

	case ConfirmMsg:
		m.confirm = msg.Resolve
		m.blocks = append(m.blocks, NewConfirmBlock(m.styles))
		return m.refresh(), m.bridge.Listen()

	case ExchangeDoneMsg:
		if m.cancel != nil {
			m.cancel()
		}
		m.running = false
		m.cancel = nil
		m.confirm = nil
		m.active = nil
		m.thinking = nil
		m.outcome = msg.Outcome
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m.interactive = true
		return m, tea.Batch(m.Input.Focus(), m.bridge.Listen())
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if m.acceptsInput() {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) acceptsInput() bool {
	return !m.running && m.interactive && m.confirm == nil
}

func (m Model) refresh() Model {
	m = m.updateBlockFocus()
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputHeight := 1
	statusHeight := 1
	borderHeight := 2
	vpHeight := max(msg.Height-inputHeight-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderConversation()
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
		m.Viewport.SetContent(m.renderContent())
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch {
		case msg.Type == tea.KeyRunes && strings.EqualFold(string(msg.Runes), "y"):
			return m.answer(true)
		case msg.Type == tea.KeyRunes && strings.EqualFold(string(msg.Runes), "n"),
			msg.Type == tea.KeyEsc:
			return m.answer(false)
		}
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if !m.acceptsInput() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil
	}

	if !m.acceptsInput() {
		return m, nil
	}

	// Character keys go to the input only; 'j' and 'k' would otherwise
	// scroll the viewport while typing.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// answer resolves the pending token-limit question. The gate is resolved
// off the update loop since accepting persists the decision.
func (m Model) answer(ok bool) (tea.Model, tea.Cmd) {
	resolve := m.confirm
	m.confirm = nil
	return m, func() tea.Msg {
		resolve(ok)
		return nil
	}
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.outcome = nil
	m.totals = nil
	m.active = nil
	m.thinking = nil

	m.prompt = NewUserMessageBlock(text, m.styles)
	m.blocks = append(m.blocks, m.prompt)
	m = m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.Input.Blur()

	return m, startExchange(ctx, m.run, m.bridge, m.conv, text)
}

// renderConversation creates blocks for the messages already in the
// conversation.
func (m Model) renderConversation() Model {
	if m.conv == nil {
		return m
	}
	for _, msg := range m.conv.Messages {
		if msg.Prompt != "" {
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Prompt, m.styles))
		}
		if msg.Response != "" {
			block := NewAssistantTextBlock(m.theme)
			block.Append(msg.Response)
			m.blocks = append(m.blocks, block)
		}
	}
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// processEvent shows reasoning events; other kinds are not rendered.
func (m Model) processEvent(evt drip.CodeGPTEvent) Model {
	if evt.Kind != KindThinking {
		return m
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil || payload.Text == "" {
		return m
	}
	if m.thinking == nil {
		m.thinking = NewThinkingBlock(m.styles)
		m.blocks = append(m.blocks, m.thinking)
	}
	m.thinking.Append(payload.Text)
	return m
}

// updateBlockFocus focuses the last thinking block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*ThinkingBlock); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

func (m Model) statusLine() string {
	tokens := m.styles.Muted.Render(fmt.Sprintf("%d tokens", m.tokens))
	switch {
	case m.confirm != nil:
		return m.styles.Warning.Render("Token limit exceeded: y to continue, n to cancel")
	case m.err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	case m.running:
		return m.styles.Muted.Render("Generating... ") + tokens
	case m.totals != nil:
		return m.styles.Muted.Render(fmt.Sprintf("Enter to send, Ctrl+C to quit · prompt %d, conversation %d tokens",
			m.totals.Prompt, m.totals.Conversation))
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit · ") + tokens
}

// startExchange runs the exchange off the update loop. Its result travels
// through the bridge so it arrives after the exchange's notifications.
func startExchange(ctx context.Context, run ExchangeFunc, bridge *Bridge, conv *drip.Conversation, prompt string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := run(ctx, conv, prompt)
		bridge.Done(outcome, err)
		return nil
	}
}
