package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drake/tailpane/event"
	"github.com/drake/tailpane/surface"
)

// snapshotMsg carries a new surface state from the session.
type snapshotMsg surface.Snapshot

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	snap   surface.Snapshot
	input  textinput.Model
	keys   keyMap
	styles Styles

	outbound chan<- event.Event
	quitting bool
}

// NewModel creates a new TUI model. Events for the session are sent on outbound.
func NewModel(outbound chan<- event.Event) Model {
	keys := DefaultKeyMap()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Placeholder = helpLine(keys)
	ti.Focus()

	styles := DefaultStyles()
	ti.PromptStyle = styles.InputPrompt
	ti.PlaceholderStyle = styles.Muted

	return Model{
		input:    ti,
		keys:     keys,
		styles:   styles,
		outbound: outbound,
	}
}

func helpLine(k keyMap) string {
	var parts []string
	for _, b := range k.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+strings.ToLower(h.Desc))
	}
	return strings.Join(parts, " · ")
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.sendOutbound(event.Event{Type: event.Resize, Width: msg.Width, Height: msg.Height})
		return m, nil

	case snapshotMsg:
		m.snap = surface.Snapshot(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.input.Value() != "" {
			m.input.Reset()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		m.control(event.ActionFocus)
		return m, nil

	case key.Matches(msg, m.keys.Close):
		m.control(event.ActionClose)
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.control(event.ActionReload)
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text != "" {
			m.sendOutbound(event.Event{Type: event.UserInput, Payload: text})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) control(action string) {
	m.sendOutbound(event.Event{
		Type:    event.SystemControl,
		Control: event.ControlOp{Action: action},
	})
}

func (m *Model) sendOutbound(ev event.Event) {
	if m.outbound == nil {
		return
	}
	select {
	case m.outbound <- ev:
	default:
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.snap.Height == 0 {
		return "Loading..."
	}
	return render(m.snap, m.styles, m.inputRow())
}

// inputRow shows the session's message while nothing is typed.
func (m Model) inputRow() string {
	if msg := inputMessage(m.snap); msg != "" && m.input.Value() == "" {
		return m.styles.InputPrompt.Render(m.input.Prompt) + m.styles.Message.Render(msg)
	}
	return m.input.View()
}
