package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings handled before the input line.
type keyMap struct {
	Quit   key.Binding
	Focus  key.Binding
	Close  key.Binding
	Reload key.Binding
	Submit key.Binding
	Clear  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Clear input, or quit when empty"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Focus next region"),
		),
		Close: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "Close focused pane"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Reload config"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Run command"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc", "ctrl+u"),
			key.WithHelp("esc", "Clear input"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Close, k.Quit}
}
